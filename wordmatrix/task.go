package wordmatrix

import (
	"context"
	"io"
	"strings"

	"github.com/chararch/twig"
	"github.com/chararch/twig/file"
	"github.com/chararch/twig/twitter7"
	"github.com/pkg/errors"
)

//GraphSuffix inputs ending with it are read as graph checkpoints, anything else as a Twitter7 file
const GraphSuffix = ".ttl"

//NewTaskFactory tasks building a WordMatrix from the tweets of one input
func NewTaskFactory(fs file.FileStorage) twig.TaskFactory[*WordMatrix] {
	return func(input string) twig.TaskFunc[*WordMatrix] {
		return func(ctx context.Context) (*WordMatrix, error) {
			r, err := file.OpenDecompressed(fs, input)
			if err != nil {
				return nil, errors.Wrapf(err, "open %v", input)
			}
			defer r.Close()

			m := New()
			if strings.HasSuffix(strings.TrimSuffix(input, file.GzipSuffix), GraphSuffix) {
				err = addGraph(m, r)
			} else {
				err = addPosts(m, r)
			}
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
}

func addGraph(m *WordMatrix, r io.Reader) error {
	return twitter7.ReadStatements(r, func(st twitter7.Statement) error {
		if st.Predicate != twitter7.TweetContent {
			return nil
		}
		content, ok := st.LiteralValue()
		if !ok {
			return errors.Errorf("tweet content is not a literal: %v", st.Object)
		}
		m.PutAll(Split(content))
		return nil
	})
}

func addPosts(m *WordMatrix, r io.Reader) error {
	reader := twitter7.NewReader(r)
	for {
		post, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		m.PutAll(Split(post.Content))
	}
}
