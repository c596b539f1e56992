package query

import (
	"fmt"
	"strings"
)

// Expression compiles the free-form boolean query language:
//
//	primary := "$" name | "(" expr ")" | "NOT" primary
//	expr := primary (("AND"|"OR") primary)*
//
// Every "$name" token is replaced in-place by the SQL rendering of the
// matching named predicate, with freshly generated parameter names.
type exprParser struct {
	toks        []string
	pos         int
	predicates  map[string]Predicate
	placeholder func(string) string
	external    map[string]interface{}
	named       map[string]interface{}
}

// Compile renders expr against predicates (and external bind parameters
// referenced by ":name" inside predicate values) into a SQL boolean
// expression plus the named values to bind.
func Compile(expr string, predicates map[string]Predicate, placeholder func(string) string, external map[string]interface{}) (string, map[string]interface{}, error) {
	p := &exprParser{
		toks:        tokenize(expr),
		predicates:  predicates,
		placeholder: placeholder,
		external:    external,
		named:       map[string]interface{}{},
	}
	sql, err := p.parseExpr()
	if err != nil {
		return "", nil, err
	}
	if p.pos != len(p.toks) {
		return "", nil, fmt.Errorf("query builder: unexpected trailing token %q", p.toks[p.pos])
	}
	return sql, p.named, nil
}

func tokenize(expr string) []string {
	// "(" and ")" are always their own token; everything else splits on
	// whitespace, matching the single-line grammar.
	expr = strings.ReplaceAll(expr, "(", " ( ")
	expr = strings.ReplaceAll(expr, ")", " ) ")
	fields := strings.Fields(expr)
	return fields
}

func (p *exprParser) peek() (string, bool) {
	if p.pos >= len(p.toks) {
		return "", false
	}
	return p.toks[p.pos], true
}

func (p *exprParser) parseExpr() (string, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return "", err
	}
	for {
		tok, ok := p.peek()
		if !ok {
			break
		}
		upper := strings.ToUpper(tok)
		if upper != "AND" && upper != "OR" {
			break
		}
		p.pos++
		right, err := p.parsePrimary()
		if err != nil {
			return "", err
		}
		left = fmt.Sprintf("(%s %s %s)", left, upper, right)
	}
	return left, nil
}

func (p *exprParser) parsePrimary() (string, error) {
	tok, ok := p.peek()
	if !ok {
		return "", fmt.Errorf("query builder: unexpected end of expression")
	}

	switch {
	case strings.ToUpper(tok) == "NOT":
		p.pos++
		inner, err := p.parsePrimary()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NOT %s", inner), nil

	case tok == "(":
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return "", err
		}
		closing, ok := p.peek()
		if !ok || closing != ")" {
			return "", fmt.Errorf("query builder: expected closing paren")
		}
		p.pos++
		return inner, nil

	case strings.HasPrefix(tok, "$"):
		p.pos++
		name := strings.TrimPrefix(tok, "$")
		pred, ok := p.predicates[name]
		if !ok {
			return "", fmt.Errorf("query builder: unknown predicate $%s", name)
		}
		sql, named, err := pred.render(name, p.placeholder, p.external)
		if err != nil {
			return "", err
		}
		for k, v := range named {
			p.named[k] = v
		}
		return sql, nil

	default:
		return "", fmt.Errorf("query builder: unexpected token %q", tok)
	}
}
