package twitter7

import (
	"context"
	"io"

	"github.com/chararch/twig"
	"github.com/chararch/twig/file"
	"github.com/pkg/errors"
)

//NewTaskFactory tasks turning one Twitter7 file into a Graph, a malformed block fails the task
func NewTaskFactory(fs file.FileStorage, anon *Anonymizer) twig.TaskFactory[*Graph] {
	return func(input string) twig.TaskFunc[*Graph] {
		return func(ctx context.Context) (*Graph, error) {
			r, err := file.OpenDecompressed(fs, input)
			if err != nil {
				return nil, errors.Wrapf(err, "open %v", input)
			}
			defer r.Close()

			graph := NewGraph()
			reader := NewReader(r)
			for {
				post, err := reader.Next()
				if err == io.EOF {
					return graph, nil
				}
				if err != nil {
					return nil, err
				}
				graph.AddPost(post, anon)
			}
		}
	}
}
