package wordmatrix

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/chararch/twig"
	"github.com/chararch/twig/file"
	"github.com/chararch/twig/twitter7"
)

func TestWordMatrix_Chance(t *testing.T) {
	m := New()
	m.AlterFrequency("a", "b", 3)
	m.AlterFrequency("a", "c", 2)
	c, err := m.Chance("a", "b")
	assert.Equal(t, nil, err)
	assert.Equal(t, 0.6, c)
	c, _ = m.Chance("a", "c")
	assert.Equal(t, 0.4, c)
	c, _ = m.Chance("a", "z")
	assert.Equal(t, 0.0, c)
	_, err = m.Chance("x", "b")
	assert.NotEqual(t, nil, err)
	assert.Equal(t, 2, m.Size())

	mappings, err := m.Mappings("a")
	assert.Equal(t, nil, err)
	assert.Equal(t, map[string]float64{"b": 0.6, "c": 0.4}, mappings)
	_, err = m.Mappings("x")
	assert.NotEqual(t, nil, err)
}

func TestWordMatrix_MergeOrderIndependent(t *testing.T) {
	tweets := []string{"the cat sat", "The dog sat down", "cat"}
	forward, backward := New(), New()
	for _, tw := range tweets {
		m := New()
		m.PutAll(Split(tw))
		forward.Merge(m)
	}
	for i := len(tweets) - 1; i >= 0; i-- {
		m := New()
		m.PutAll(Split(tweets[i]))
		backward.Merge(m)
	}
	var b1, b2 bytes.Buffer
	assert.Equal(t, nil, forward.Encode(&b1))
	assert.Equal(t, nil, backward.Encode(&b2))
	assert.Equal(t, b1.String(), b2.String())
	assert.Equal(t, forward.Size(), backward.Size())

	c, _ := forward.Chance("sat", "")
	assert.Equal(t, 0.5, c)
	c, _ = forward.Chance("", "the")
	assert.Equal(t, 2.0/3.0, c)

	decoded := New()
	assert.Equal(t, nil, decoded.Decode(&b1))
	var b3 bytes.Buffer
	assert.Equal(t, nil, decoded.Encode(&b3))
	assert.Equal(t, b2.String(), b3.String())
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []Pair{{"", "hi"}, {"hi", "there"}, {"there", ""}}, Split("Hi  there\n"))
	assert.Equal(t, 0, len(Split("   ")))
}

func TestNewTaskFactory_FromGraphCheckpoint(t *testing.T) {
	dir := t.TempDir()
	fs := &file.LocalFileSystem{}
	anon := twitter7.NewAnonymizer([]byte("fixed"))
	g := twitter7.NewGraph()
	g.AddPost(&twitter7.Post{Time: time.Date(2009, 9, 30, 23, 55, 53, 0, time.UTC), User: "u", Content: "good morning"}, anon)
	g.AddPost(&twitter7.Post{Time: time.Date(2009, 9, 30, 23, 56, 0, 0, time.UTC), User: "u", Content: "good night"}, anon)

	graphSink := &file.FileSink[*twitter7.Graph]{
		Storage: fs,
		Path:    (&file.Rotator{Dir: dir, Base: "graph", Ext: ".ttl.gz"}).Path,
	}
	loc, err := graphSink.Write(context.Background(), 0, g)
	assert.Equal(t, nil, err)

	wordSink := &file.FileSink[*WordMatrix]{
		Storage: fs,
		Path:    (&file.Rotator{Dir: dir, Base: "words", Ext: ".json"}).Path,
	}
	report, err := twig.Run(context.Background(), twig.Options[*WordMatrix]{
		Inputs:     []string{loc},
		Factory:    NewTaskFactory(fs),
		NewResult:  New,
		Sink:       wordSink,
		Threshold:  100,
		Workers:    1,
		Repository: twig.NewMemoryRepository(),
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(report.Outputs))
	assert.Equal(t, filepath.Join(dir, "words_0.json"), report.Outputs[0])

	r, err := file.OpenDecompressed(fs, report.Outputs[0])
	assert.Equal(t, nil, err)
	defer r.Close()
	m := New()
	assert.Equal(t, nil, m.Decode(r))
	c, err := m.Chance("good", "morning")
	assert.Equal(t, nil, err)
	assert.Equal(t, 0.5, c)
	c, _ = m.Chance("", "good")
	assert.Equal(t, 1.0, c)
}

func TestNewTaskFactory_FromTwitter7(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "tweets.txt")
	content := "total number:2\n\n" +
		"T\t2009-06-11 00:00:00\nU\thttp://twitter.com/a\nW\tgood morning\n\n" +
		"T\t2009-06-11 00:00:01\nU\thttp://twitter.com/b\nW\tGood night\n"
	assert.Equal(t, nil, os.WriteFile(name, []byte(content), 0644))

	m, err := NewTaskFactory(&file.LocalFileSystem{})(name)(context.Background())
	assert.Equal(t, nil, err)
	c, err := m.Chance("good", "night")
	assert.Equal(t, nil, err)
	assert.Equal(t, 0.5, c)
	assert.Equal(t, 5, m.Size())

	assert.Equal(t, nil, os.WriteFile(name, []byte("W\tno block\n"), 0644))
	_, err = NewTaskFactory(&file.LocalFileSystem{})(name)(context.Background())
	assert.NotEqual(t, nil, err)
}
