package file

import (
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

type gzipReader struct {
	*gzip.Reader
	src io.ReadCloser
}

func (r *gzipReader) Close() error {
	err := r.Reader.Close()
	if e := r.src.Close(); err == nil {
		err = e
	}
	return err
}

type gzipWriter struct {
	*gzip.Writer
	dst io.WriteCloser
}

func (w *gzipWriter) Close() error {
	err := w.Writer.Close()
	if e := w.dst.Close(); err == nil {
		err = e
	}
	return err
}

//OpenDecompressed opens fileName, transparently gunzipping it when it ends with GzipSuffix
func OpenDecompressed(fs FileStorage, fileName string) (io.ReadCloser, error) {
	r, err := fs.Open(fileName)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(fileName, GzipSuffix) {
		return r, nil
	}
	gr, err := gzip.NewReader(r)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return &gzipReader{Reader: gr, src: r}, nil
}

//CreateCompressed creates fileName, gzipping the content when it ends with GzipSuffix
func CreateCompressed(fs FileStorage, fileName string) (io.WriteCloser, error) {
	w, err := fs.Create(fileName)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(fileName, GzipSuffix) {
		return w, nil
	}
	return &gzipWriter{Writer: gzip.NewWriter(w), dst: w}, nil
}
