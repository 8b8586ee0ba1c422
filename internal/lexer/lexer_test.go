package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lemon-Chad/NupizLang/internal/token"
)

func scanAll(src string) []token.Token {
	l := New(src)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll("if iffy fn function")
	require.Len(t, toks, 5)
	require.Equal(t, token.IF, toks[0].Type)
	require.Equal(t, token.IDENT, toks[1].Type, "keyword prefix must not be accepted as the keyword")
	require.Equal(t, token.FN, toks[2].Type)
	require.Equal(t, token.IDENT, toks[3].Type)
}

func TestOperators(t *testing.T) {
	toks := scanAll("+= -= *= /= == != <= >= && || <- ->")
	var types []token.Type
	for _, tok := range toks {
		if tok.Type != token.EOF {
			types = append(types, tok.Type)
		}
	}
	require.Equal(t, []token.Type{
		token.PLUS_EQUAL, token.MINUS_EQUAL, token.STAR_EQUAL, token.SLASH_EQUAL,
		token.EQUAL_EQUAL, token.BANG_EQUAL, token.LESS_EQUAL, token.GREATER_EQUAL,
		token.AMP_AMP, token.PIPE_PIPE, token.ARROW_LEFT, token.ARROW_RIGHT,
	}, types)
}

func TestSingleAmpAndPipe(t *testing.T) {
	toks := scanAll("& |")
	require.Equal(t, token.AMP, toks[0].Type)
	require.Equal(t, token.PIPE, toks[1].Type)
}

func TestLineCommentsSkipped(t *testing.T) {
	toks := scanAll("1 // a comment\n2")
	require.Equal(t, token.NUMBER, toks[0].Type)
	require.Equal(t, "1", toks[0].Lexeme)
	require.Equal(t, token.NUMBER, toks[1].Type)
	require.Equal(t, "2", toks[1].Lexeme)
	require.Equal(t, 2, toks[1].Line, "newline inside/after the comment must advance the line counter")
}

func TestNumberLiteral(t *testing.T) {
	toks := scanAll("42 3.14 5.")
	require.Equal(t, "42", toks[0].Lexeme)
	require.Equal(t, "3.14", toks[1].Lexeme)
	// a trailing '.' with no following digit is not part of the number
	require.Equal(t, "5", toks[2].Lexeme)
	require.Equal(t, token.DOT, toks[3].Type)
}

func TestStringLiteralTracksEscapes(t *testing.T) {
	toks := scanAll(`"a\"b" "plain"`)
	require.Equal(t, token.STRING, toks[0].Type)
	require.Equal(t, `"a\"b"`, toks[0].Lexeme, "an escaped quote must not terminate the literal")
	require.Equal(t, token.STRING, toks[1].Type)
}

func TestUnterminatedStringIsErrorToken(t *testing.T) {
	toks := scanAll(`"never closes`)
	require.Equal(t, token.ERROR, toks[0].Type)
}

func TestStrayCharacterIsErrorToken(t *testing.T) {
	toks := scanAll("@")
	require.Equal(t, token.ERROR, toks[0].Type)
}

func TestLexemesAreSourceSlices(t *testing.T) {
	src := "let x"
	l := New(src)
	tok := l.Next()
	require.Equal(t, token.LET, tok.Type)
	tok = l.Next()
	require.Equal(t, "x", tok.Lexeme)
}
