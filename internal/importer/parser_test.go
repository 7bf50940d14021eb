package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaderless(t *testing.T) {
	res := NewParser("SEK").Parse("AAPL;10;150,50")

	require.Len(t, res.Holdings, 1)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, 1, res.Rows)

	h := res.Holdings[0]
	assert.Equal(t, "AAPL", h.Symbol)
	assert.True(t, decimal.NewFromInt(10).Equal(h.Quantity))
	assert.True(t, decimal.NewFromFloat(150.5).Equal(h.PurchasePrice))
	assert.Equal(t, "SEK", h.Currency)
	assert.True(t, h.NameManuallyEdited)
	assert.True(t, h.PriceManuallyEdited)
	assert.False(t, h.CurrencyManuallyEdited)
}

func TestParseHeaderlessPositional(t *testing.T) {
	res := NewParser("SEK").Parse("Apple Inc.,AAPL,10,150.5,USD\nVolvo B,VOLV B,20,250,SEK\n")

	require.Len(t, res.Holdings, 2)
	assert.Equal(t, "Apple Inc.", res.Holdings[0].Name)
	assert.Equal(t, "AAPL", res.Holdings[0].Symbol)
	assert.Equal(t, "USD", res.Holdings[0].Currency)
	assert.True(t, res.Holdings[0].CurrencyManuallyEdited)
	assert.Equal(t, "VOLV B", res.Holdings[1].Symbol)
}

func TestParseWithHeader(t *testing.T) {
	text := "\ufeffNamn;Kortnamn;ISIN;Antal;Senaste kurs;GAV (USD);Valuta\r\n" +
		"Apple;AAPL;US0378331005;10;190,10;150,50;\r\n" +
		"Ericsson B;ERIC-B.ST;SE0000108656;100;80,00;65,25;\r\n" +
		"\"Investor B\";;SE0015811963;5;280;250;SEK\r\n"

	res := NewParser("SEK").Parse(text)
	require.Len(t, res.Holdings, 3)
	assert.Equal(t, 3, res.Rows)

	apple := res.Holdings[0]
	assert.Equal(t, "Apple", apple.Name)
	assert.Equal(t, "AAPL", apple.Symbol)
	assert.True(t, decimal.NewFromFloat(150.5).Equal(apple.PurchasePrice), "average cost column wins")
	assert.Equal(t, "USD", apple.Currency, "currency from price header")

	eric := res.Holdings[1]
	assert.Equal(t, "ERIC-B.ST", eric.Symbol)
	assert.Equal(t, "USD", eric.Currency, "price header hint precedes suffix inference")

	investor := res.Holdings[2]
	assert.Equal(t, "Investor B", investor.Name)
	assert.Equal(t, "SE0015811963", investor.Symbol, "ISIN used when no ticker")
	assert.Equal(t, "SEK", investor.Currency)
	assert.True(t, investor.CurrencyManuallyEdited)
}

func TestParseCurrencyPrecedence(t *testing.T) {
	text := "Symbol,Quantity,Price\nEQNR.OL,10,300\nAAPL,1,190\n"

	res := NewParser("SEK").Parse(text)
	require.Len(t, res.Holdings, 2)
	assert.Equal(t, "NOK", res.Holdings[0].Currency, "suffix inference")
	assert.Equal(t, "SEK", res.Holdings[1].Currency, "default")

	require.Len(t, res.Sources, 2)
	assert.False(t, res.Sources[0].CurrencyDefaulted)
	assert.True(t, res.Sources[1].CurrencyDefaulted)
}

func TestParseSources(t *testing.T) {
	text := "Name;Symbol;Quantity;Price (USD);Currency\n" +
		"\n" +
		"Apple;AAPL;10;150;\n" +
		"Broken;BRK;;1;\n" +
		"Equinor;EQNR;5;300;NOK\n"

	res := NewParser("SEK").Parse(text)

	require.Len(t, res.Holdings, 2)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, Source{Line: 3, Text: "Apple;AAPL;10;150;"}, res.Sources[0])
	assert.Equal(t, 5, res.Sources[1].Line)
	assert.False(t, res.Sources[1].CurrencyDefaulted)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 4, res.Skipped[0].Line)
}

func TestParseSkipsInvalidRows(t *testing.T) {
	text := "Name,Symbol,Quantity,Price\n" +
		"Apple,AAPL,10,150\n" +
		"Missing qty,MQ,,150\n" +
		"Missing price,MP,10,\n" +
		",,10,150\n" +
		"Zero,ZR,0,150\n" +
		"Negative,NG,10,-5\n" +
		"Microsoft,MSFT,\"1,5\",300\n"

	res := NewParser("USD").Parse(text)
	assert.Equal(t, 7, res.Rows)
	require.Len(t, res.Holdings, 2)
	require.Len(t, res.Skipped, 5)

	assert.Equal(t, "MSFT", res.Holdings[1].Symbol)
	assert.True(t, decimal.NewFromFloat(1.5).Equal(res.Holdings[1].Quantity))

	assert.Equal(t, 3, res.Skipped[0].Line)
	assert.Equal(t, "missing quantity", res.Skipped[0].Reason)
	assert.Equal(t, "missing purchase price", res.Skipped[1].Reason)
	assert.Equal(t, "missing name and symbol", res.Skipped[2].Reason)
}

func TestParseNumericFirstLineIsData(t *testing.T) {
	res := NewParser("USD").Parse("Costco,COST,3,500\n")
	require.Len(t, res.Holdings, 1)
	assert.Equal(t, "COST", res.Holdings[0].Symbol)
	assert.Equal(t, "Costco", res.Holdings[0].Name)
}

func TestParseEmpty(t *testing.T) {
	res := NewParser("SEK").Parse("\n\n  \n")
	assert.Empty(t, res.Holdings)
	assert.Equal(t, 0, res.Rows)

	res = NewParser("SEK").Parse("Name;Quantity;Price\n")
	assert.Empty(t, res.Holdings)
	assert.Equal(t, 0, res.Rows)
}

func TestParseIgnoresTotalColumns(t *testing.T) {
	text := "Namn;Antal;Anskaffningsvärde;Total cost;Anskaffningskurs\n" +
		"Volvo B;10;2500;2500;250\n"

	res := NewParser("SEK").Parse(text)

	require.Len(t, res.Holdings, 1)
	assert.True(t, decimal.NewFromInt(250).Equal(res.Holdings[0].PurchasePrice))
}
