package xtokenizer_test

import (
	"strings"
	"testing"

	"github.com/kastellan/xtokenizer"
)

const benchDoc = `<catalog>
	<book id="bk101" category="fiction">
		<author>Gambardella, Matthew</author>
		<title>XML Developer's Guide</title>
		<price currency="USD">44.95</price>
		<description>An in-depth look at creating applications with XML.</description>
	</book>
	<book id="bk102" category="fiction">
		<author>Ralls, Kim</author>
		<title>Midnight Rain</title>
		<price currency="USD">5.95</price>
	</book>
</catalog>`

func BenchmarkNextToken(b *testing.B) {
	b.ReportAllocs()
	var tk xtokenizer.Token
	for i := 0; i < b.N; i++ {
		tok, err := xtokenizer.New(strings.NewReader(benchDoc))
		if err != nil {
			b.Fatal(err)
		}
		for tok.NextToken(&tk) {
		}
	}
}

func BenchmarkNextTokenReset(b *testing.B) {
	b.ReportAllocs()
	tok, err := xtokenizer.New(strings.NewReader(benchDoc))
	if err != nil {
		b.Fatal(err)
	}
	var tk xtokenizer.Token
	for i := 0; i < b.N; i++ {
		tok.Reset()
		for tok.NextToken(&tk) {
		}
	}
}

func BenchmarkGetPutToken(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tk := xtokenizer.GetToken()
		xtokenizer.PutToken(tk)
	}
}
