package twig

import (
	"path/filepath"
	"sort"
	"sync"
)

//TaskSource ordered pool of pending tasks, safe for concurrent pulls
type TaskSource[T any] interface {
	//Next returns the task bound to the next input, false once no input remains
	Next() (Task[T], bool)
	//TotalRemaining number of inputs not handed out yet
	TotalRemaining() int
}

//FileTaskSource yields one task per input file in ascending path order
type FileTaskSource[T any] struct {
	mu      sync.Mutex
	inputs  []string
	cursor  int
	factory TaskFactory[T]
}

//NewFileTaskSource new instance. Paths are cleaned and duplicates collapse to one task
func NewFileTaskSource[T any](inputs []string, factory TaskFactory[T]) *FileTaskSource[T] {
	seen := make(map[string]struct{}, len(inputs))
	sorted := make([]string, 0, len(inputs))
	for _, in := range inputs {
		p := filepath.Clean(in)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)
	return &FileTaskSource[T]{inputs: sorted, factory: factory}
}

func (s *FileTaskSource[T]) Next() (Task[T], bool) {
	s.mu.Lock()
	if s.cursor >= len(s.inputs) {
		s.mu.Unlock()
		return Task[T]{}, false
	}
	seq := s.cursor
	input := s.inputs[seq]
	s.inputs[seq] = ""
	s.cursor++
	s.mu.Unlock()
	return NewTask(input, seq, s.factory(input)), true
}

func (s *FileTaskSource[T]) TotalRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs) - s.cursor
}

//Len total number of distinct inputs the source was built with
func (s *FileTaskSource[T]) Len() int {
	return len(s.inputs)
}
