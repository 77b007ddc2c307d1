package file

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const sinkBufferSize = 64 * 1024

//FileSink writes every checkpoint snapshot to its own rotated file
type FileSink[T Encoder] struct {
	Storage FileStorage
	//Path maps a rotation index to a file name
	Path func(index int) (string, error)
	//Checksum key of the Checksumer run after each write, empty for none
	Checksum string
	//SkipExisting moves past rotation indexes whose file already exists instead of overwriting it
	SkipExisting bool

	mu     sync.Mutex
	offset int
}

func (s *FileSink[T]) Write(ctx context.Context, index int, snapshot T) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ch Checksumer
	if s.Checksum != "" {
		if ch = GetChecksumer(s.Checksum); ch == nil {
			return "", errors.Errorf("unknown checksum:%v", s.Checksum)
		}
	}
	name, err := s.nextFile(index)
	if err != nil {
		return "", err
	}
	w, err := CreateCompressed(s.Storage, name)
	if err != nil {
		return "", errors.Wrapf(err, "create %v", name)
	}
	bw := bufio.NewWriterSize(w, sinkBufferSize)
	if err = snapshot.Encode(bw); err == nil {
		err = bw.Flush()
	}
	if e := w.Close(); err == nil {
		err = e
	}
	if err != nil {
		return "", s.discard(name, errors.Wrapf(err, "write %v", name))
	}
	if ch != nil {
		if err = ch.Checksum(s.Storage, name); err != nil {
			return "", s.discard(name, errors.Wrapf(err, "checksum %v", name))
		}
	}
	return name, nil
}

//discard removes the partially written file so a retry can reuse its name
func (s *FileSink[T]) discard(name string, cause error) error {
	if err := s.Storage.Remove(name); err != nil {
		return errors.Wrapf(cause, "remove partial file %v failed: %v", name, err)
	}
	return cause
}

func (s *FileSink[T]) nextFile(index int) (string, error) {
	if s.Path == nil {
		return "", errors.New("file sink has no path")
	}
	for {
		name, err := s.Path(index + s.offset)
		if err != nil {
			return "", err
		}
		if !s.SkipExisting {
			return name, nil
		}
		ok, err := s.Storage.Exists(name)
		if err != nil {
			return "", err
		}
		if !ok {
			return name, nil
		}
		s.offset++
	}
}

//Rotator names rotated files Dir/Base_index.Ext
type Rotator struct {
	Dir  string
	Base string
	Ext  string
}

func (r Rotator) Path(index int) (string, error) {
	if r.Base == "" {
		return "", errors.New("rotator has no base name")
	}
	return filepath.Join(r.Dir, fmt.Sprintf("%s_%d%s", r.Base, index, r.Ext)), nil
}
