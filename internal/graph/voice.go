package graph

// voice is one scheduled playback of rendered sample data. All positions are
// absolute audio frames; end is exclusive. Between fadeFrom and end the gain
// ramps linearly to zero.
type voice struct {
	data     []float32
	start    int64
	end      int64
	fadeFrom int64
}

func (v *voice) frames() int64 { return int64(len(v.data) / 2) }

func (v *voice) mix(dst []float32, frame int64, fadeIn int64) {
	n := int64(len(dst) / 2)
	i := int64(0)
	if v.start > frame {
		i = v.start - frame
	}
	total := v.frames()
	for ; i < n; i++ {
		f := frame + i
		if f >= v.end {
			return
		}
		idx := f - v.start
		if idx >= total {
			return
		}
		gain := float32(1)
		if idx < fadeIn {
			gain = float32(idx+1) / float32(fadeIn)
		}
		if v.fadeFrom < v.end && f >= v.fadeFrom {
			gain *= float32(v.end-f) / float32(v.end-v.fadeFrom)
		}
		dst[i*2] += v.data[idx*2] * gain
		dst[i*2+1] += v.data[idx*2+1] * gain
	}
}

// player is the source stage of a graph: it owns the voices playing the
// sample. Pre-emption keeps at most one voice sounding at any frame.
type player struct {
	voices  []*voice
	fadeIn  int64
	fadeOut int64
}

// mix adds every voice into dst (interleaved stereo starting at frame).
func (p *player) mix(dst []float32, frame int64) {
	for _, v := range p.voices {
		v.mix(dst, frame, p.fadeIn)
	}
}

func (p *player) start(data []float32, at, maxFrames int64) {
	v := &voice{data: data, start: at}
	n := v.frames()
	v.end = at + n
	v.fadeFrom = v.end
	if maxFrames > 0 && maxFrames < n {
		v.end = at + maxFrames
		v.fadeFrom = v.end - p.fadeOut
		if v.fadeFrom < at {
			v.fadeFrom = at
		}
	}
	p.voices = append(p.voices, v)
}

// stop silences everything from frame at onward. Voices that would start at
// or after at are dropped; a sounding voice fades out and ends exactly at at.
// rendered is the first frame not yet handed to the output; the fade cannot
// begin before it.
func (p *player) stop(at, rendered int64) {
	kept := p.voices[:0]
	for _, v := range p.voices {
		if v.start >= at {
			continue
		}
		if v.end > at {
			from := at - p.fadeOut
			if from < rendered {
				from = rendered
			}
			if from < v.start {
				from = v.start
			}
			fading := v.fadeFrom < v.end && v.fadeFrom <= from
			v.end = at
			if !fading {
				v.fadeFrom = from
			}
		}
		kept = append(kept, v)
	}
	for i := len(kept); i < len(p.voices); i++ {
		p.voices[i] = nil
	}
	p.voices = kept
}

// swap replaces the data of every pending or sounding voice, keeping
// positions. Used when pitch or direction change mid-note.
func (p *player) swap(data []float32) {
	for _, v := range p.voices {
		v.data = data
	}
}

// prune drops voices that have fully played before frame.
func (p *player) prune(frame int64) {
	kept := p.voices[:0]
	for _, v := range p.voices {
		if v.end > frame && v.start+v.frames() > frame {
			kept = append(kept, v)
		}
	}
	for i := len(kept); i < len(p.voices); i++ {
		p.voices[i] = nil
	}
	p.voices = kept
}

func (p *player) active() bool { return len(p.voices) > 0 }

// sounding counts voices producing output at frame.
func (p *player) sounding(frame int64) int {
	n := 0
	for _, v := range p.voices {
		if frame >= v.start && frame < v.end && frame-v.start < v.frames() {
			n++
		}
	}
	return n
}

func (p *player) clear() {
	for i := range p.voices {
		p.voices[i] = nil
	}
	p.voices = p.voices[:0]
}
