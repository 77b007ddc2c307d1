package twitter7

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	TwigIRI = "http://aksw.org/twig#"
	RDFIRI  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	OWLIRI  = "http://www.w3.org/2002/07/owl#"
	XSDIRI  = "http://www.w3.org/2001/XMLSchema#"
)

//DateTimeLayout lexical form of twig:tweetTime
const DateTimeLayout = "2006-01-02T15:04:05"

var (
	rdfType              = iri(RDFIRI + "type")
	owlNamedIndividual   = iri(OWLIRI + "NamedIndividual")
	tweetClass           = iri(TwigIRI + "Tweet")
	onlineTwitterAccount = iri(TwigIRI + "OnlineTwitterAccount")
	sends                = iri(TwigIRI + "sends")
	mentions             = iri(TwigIRI + "mentions")
	tweetTime            = iri(TwigIRI + "tweetTime")
	//TweetContent predicate carrying the anonymized message text
	TweetContent = iri(TwigIRI + "tweetContent")
)

func iri(s string) string {
	return "<" + s + ">"
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

var literalUnescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\n`, "\n", `\r`, "\r", `\t`, "\t")

func literal(value, datatype string) string {
	return `"` + literalEscaper.Replace(value) + `"^^` + iri(XSDIRI+datatype)
}

//Graph a set of N-Triples statements
type Graph struct {
	statements map[string]struct{}
}

func NewGraph() *Graph {
	return &Graph{statements: map[string]struct{}{}}
}

func (g *Graph) add(s, p, o string) {
	g.statements[s+" "+p+" "+o+" ."] = struct{}{}
}

func (g *Graph) account(anonymized string) string {
	acc := iri(TwigIRI + anonymized)
	g.add(acc, rdfType, owlNamedIndividual)
	g.add(acc, rdfType, onlineTwitterAccount)
	return acc
}

//AddPost adds the statements describing post, account names are anonymized in IRIs and in the content
func (g *Graph) AddPost(post *Post, anon *Anonymizer) {
	sender := anon.Anonymize(post.User)
	account := g.account(sender)

	content := mentionRegexp.ReplaceAllStringFunc(post.Content, func(m string) string {
		return "@" + anon.Anonymize(m[1:])
	})
	ts := post.Time.Format(DateTimeLayout)
	tweet := iri(TwigIRI + sender + "_" + strings.ReplaceAll(ts, ":", "-"))
	g.add(tweet, rdfType, owlNamedIndividual)
	g.add(tweet, rdfType, tweetClass)
	g.add(tweet, TweetContent, literal(content, "string"))
	g.add(tweet, tweetTime, literal(ts, "dateTime"))
	g.add(account, sends, tweet)
	for _, m := range post.Mentions {
		g.add(tweet, mentions, g.account(anon.Anonymize(m)))
	}
}

//Merge set union
func (g *Graph) Merge(other *Graph) {
	for s := range other.statements {
		g.statements[s] = struct{}{}
	}
}

//Size number of distinct statements
func (g *Graph) Size() int {
	return len(g.statements)
}

//Statements sorted
func (g *Graph) Statements() []string {
	result := make([]string, 0, len(g.statements))
	for s := range g.statements {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

//Encode writes the statements as sorted N-Triples, one per line
func (g *Graph) Encode(w io.Writer) error {
	for _, s := range g.Statements() {
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

//Statement one parsed N-Triples line
type Statement struct {
	Subject   string
	Predicate string
	Object    string
}

//LiteralValue the unescaped lexical value when Object is a literal
func (s Statement) LiteralValue() (string, bool) {
	if !strings.HasPrefix(s.Object, `"`) {
		return "", false
	}
	end := strings.LastIndex(s.Object, `"`)
	if end <= 0 {
		return "", false
	}
	return literalUnescaper.Replace(s.Object[1:end]), true
}

//ParseStatement parses a line written by Graph.Encode
func ParseStatement(line string) (Statement, error) {
	line = strings.TrimSpace(line)
	if !strings.HasSuffix(line, " .") {
		return Statement{}, errors.Errorf("statement not terminated: %q", line)
	}
	line = strings.TrimSuffix(line, " .")
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return Statement{}, errors.Errorf("malformed statement: %q", line)
	}
	return Statement{Subject: parts[0], Predicate: parts[1], Object: parts[2]}, nil
}

//ReadStatements calls fn for every statement of an N-Triples stream
func ReadStatements(r io.Reader, fn func(Statement) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		st, err := ParseStatement(text)
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		if err = fn(st); err != nil {
			return err
		}
	}
	return sc.Err()
}
