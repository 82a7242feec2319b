package beatgrid

import (
	"io/fs"

	"github.com/cbegin/beatgrid-go/internal/sample"
)

type (
	// Loader fetches and decodes the audio a SampleRef names.
	Loader     = sample.Loader
	LoaderFunc = sample.LoaderFunc
	// Buffer is decoded audio: interleaved stereo float32 at the engine rate.
	Buffer = sample.Buffer
)

// NewFSLoader decodes WAV, MP3 and Ogg Vorbis files from fsys, resampled to
// sampleRate.
func NewFSLoader(fsys fs.FS, sampleRate int) Loader {
	return sample.NewFSLoader(fsys, sampleRate)
}

// NewDirLoader is NewFSLoader over a directory on disk.
func NewDirLoader(dir string, sampleRate int) Loader {
	return sample.NewDirLoader(dir, sampleRate)
}

// ListSamples returns the decodable files directly inside dir, sorted.
func ListSamples(fsys fs.FS, dir string) ([]string, error) {
	return sample.List(fsys, dir)
}
