package twig

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type stringSet struct {
	items map[string]struct{}
}

func newStringSet(items ...string) *stringSet {
	s := &stringSet{items: map[string]struct{}{}}
	for _, it := range items {
		s.items[it] = struct{}{}
	}
	return s
}

func (s *stringSet) Merge(other *stringSet) {
	for k := range other.items {
		s.items[k] = struct{}{}
	}
}

func (s *stringSet) Size() int {
	return len(s.items)
}

func (s *stringSet) Sorted() []string {
	result := make([]string, 0, len(s.items))
	for k := range s.items {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

type memorySink struct {
	mu        sync.Mutex
	snapshots map[int][]string
	order     []int
	failing   bool
}

func newMemorySink() *memorySink {
	return &memorySink{snapshots: map[int][]string{}}
}

func (s *memorySink) Write(ctx context.Context, index int, snapshot *stringSet) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return "", fmt.Errorf("disk full")
	}
	s.snapshots[index] = snapshot.Sorted()
	s.order = append(s.order, index)
	return fmt.Sprintf("mem://%d", index), nil
}

func (s *memorySink) setFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *memorySink) sizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]int, 0, len(s.order))
	for _, idx := range s.order {
		result = append(result, len(s.snapshots[idx]))
	}
	return result
}

func (s *memorySink) union() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := newStringSet()
	for _, items := range s.snapshots {
		all.Merge(newStringSet(items...))
	}
	return all.Sorted()
}

func (s *memorySink) canonical() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, idx := range s.order {
		fmt.Fprintf(&b, "#%d\n%s\n", idx, strings.Join(s.snapshots[idx], "\n"))
	}
	return b.String()
}

func inputNames(n int) []string {
	result := make([]string, n)
	for i := 0; i < n; i++ {
		result[i] = fmt.Sprintf("in/%03d.txt", i)
	}
	return result
}

func echoFactory(input string) TaskFunc[*stringSet] {
	return func(ctx context.Context) (*stringSet, error) {
		return newStringSet(input), nil
	}
}
