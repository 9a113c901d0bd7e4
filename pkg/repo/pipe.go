package repo

import "io"

// newPipe is a thin alias over io.Pipe, used to fan a ReadStream
// callback into a streaming decompressor without buffering the whole
// payload in memory.
func newPipe() (*io.PipeReader, *io.PipeWriter) {
	return io.Pipe()
}

func copyAll(dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, src)
}
