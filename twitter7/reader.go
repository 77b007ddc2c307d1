package twitter7

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

//TimeLayout layout of the T line
const TimeLayout = "2006-01-02 15:04:05"

const maxLineSize = 1024 * 1024

var userPrefixes = []string{"http://twitter.com/", "https://twitter.com/", "http://www.twitter.com/", "https://www.twitter.com/"}

var mentionRegexp = regexp.MustCompile(`@(\w+)`)

//Post one parsed T/U/W block
type Post struct {
	Time     time.Time
	User     string
	Content  string
	Mentions []string
}

//ParseError a malformed block
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("twitter7 parse error at line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("twitter7 parse error: %s", e.Msg)
}

//ParseBlock parses the values of a T, U and W line, the leading type letter already stripped
func ParseBlock(t, u, w string) (*Post, error) {
	ts, err := time.Parse(TimeLayout, strings.TrimSpace(t))
	if err != nil {
		return nil, &ParseError{Msg: fmt.Sprintf("bad time %q", strings.TrimSpace(t))}
	}
	u = strings.TrimSpace(u)
	user := ""
	for _, prefix := range userPrefixes {
		if strings.HasPrefix(u, prefix) {
			user = strings.TrimSuffix(u[len(prefix):], "/")
			break
		}
	}
	if user == "" {
		return nil, &ParseError{Msg: fmt.Sprintf("bad user %q", u)}
	}
	content := strings.TrimSpace(w)
	return &Post{Time: ts, User: user, Content: content, Mentions: Mentions(content)}, nil
}

//Mentions the distinct account names mentioned in content, in order of appearance
func Mentions(content string) []string {
	var result []string
	seen := map[string]struct{}{}
	for _, m := range mentionRegexp.FindAllStringSubmatch(content, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		result = append(result, m[1])
	}
	return result
}

//Reader reads posts from a Twitter7 corpus file
type Reader struct {
	sc   *bufio.Scanner
	line int
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Reader{sc: sc}
}

//Line number of the last line read
func (r *Reader) Line() int {
	return r.line
}

func (r *Reader) scan() (string, bool, error) {
	for r.sc.Scan() {
		r.line++
		line := r.sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		return line, true, nil
	}
	return "", false, r.sc.Err()
}

func splitKind(line string) (byte, string) {
	if len(line) < 2 || (line[1] != '\t' && line[1] != ' ') {
		return 0, line
	}
	return line[0], line[2:]
}

//Next returns the next post, io.EOF once the input is exhausted
func (r *Reader) Next() (*Post, error) {
	var t string
	for {
		line, ok, err := r.scan()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, io.EOF
		}
		kind, val := splitKind(line)
		if kind == 'T' {
			t = val
			break
		}
		if kind == 'U' || kind == 'W' {
			return nil, &ParseError{Line: r.line, Msg: fmt.Sprintf("unexpected %c line outside a block", kind)}
		}
		//header lines such as "total number:..."
	}
	start := r.line
	vals := make([]string, 0, 2)
	for _, want := range []byte{'U', 'W'} {
		line, ok, err := r.scan()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &ParseError{Line: r.line, Msg: fmt.Sprintf("truncated block started at line %d", start)}
		}
		kind, val := splitKind(line)
		if kind != want {
			return nil, &ParseError{Line: r.line, Msg: fmt.Sprintf("expected %c line, got %q", want, line)}
		}
		vals = append(vals, val)
	}
	post, err := ParseBlock(t, vals[0], vals[1])
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Line = start
		}
		return nil, err
	}
	return post, nil
}
