package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEntry_Delimiters(t *testing.T) {
	want := ParsedEntry{Client: "A", Item: "B", AmountCents: 1050}
	for _, in := range []string{
		"A — B — 10,50",
		"A; B; 10,50",
		"A - B - 10,50",
		"A—B—10.50",
		"  A ;B;  R$ 10,50 ",
	} {
		t.Run(in, func(t *testing.T) {
			got, ok := ExtractEntry(in)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestExtractEntry(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ParsedEntry
		ok   bool
	}{
		{
			name: "em dash",
			in:   "João — troca de óleo — 120",
			want: ParsedEntry{Client: "João", Item: "troca de óleo", AmountCents: 12000},
			ok:   true,
		},
		{
			name: "semicolon with comma decimals",
			in:   "Maria; pintura; 45,90",
			want: ParsedEntry{Client: "Maria", Item: "pintura", AmountCents: 4590},
			ok:   true,
		},
		{
			name: "em dash wins over hyphen",
			in:   "Ana — pós-venda — 50",
			want: ParsedEntry{Client: "Ana", Item: "pós-venda", AmountCents: 5000},
			ok:   true,
		},
		{
			name: "semicolon wins over hyphen",
			in:   "Ana; troca pneu-dianteiro; 80",
			want: ParsedEntry{Client: "Ana", Item: "troca pneu-dianteiro", AmountCents: 8000},
			ok:   true,
		},
		{
			name: "middle segments are joined back",
			in:   "Ana - pós-venda - 50",
			want: ParsedEntry{Client: "Ana", Item: "pós-venda", AmountCents: 5000},
			ok:   true,
		},
		{
			name: "fallback on plain words",
			in:   "Carlos revisão 80",
			want: ParsedEntry{Client: "Carlos", Item: "revisão", AmountCents: 8000},
			ok:   true,
		},
		{
			name: "fallback with commas from transcription",
			in:   "Cliente João, troca de óleo, 120 reais.",
			want: ParsedEntry{Client: "Cliente João", Item: "troca de óleo reais.", AmountCents: 12000},
			ok:   true,
		},
		{
			name: "fallback after incomplete delimiter split",
			in:   "Pedro; 35",
			ok:   false,
		},
		{
			name: "delimiter amount unparseable falls back",
			in:   "Bia — corte 30 — grátis",
			want: ParsedEntry{Client: "Bia", Item: "corte grátis", AmountCents: 3000},
			ok:   true,
		},
		{
			name: "greeting",
			in:   "oi",
			ok:   false,
		},
		{
			name: "number only",
			in:   "120",
			ok:   false,
		},
		{
			name: "empty",
			in:   "",
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractEntry(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParsedEntryValidate(t *testing.T) {
	assert.NoError(t, ParsedEntry{Client: "A", Item: "B", AmountCents: 0}.Validate())
	assert.ErrorIs(t, ParsedEntry{Client: " ", Item: "B"}.Validate(), ErrEmptyClient)
	assert.ErrorIs(t, ParsedEntry{Client: "A", Item: ""}.Validate(), ErrEmptyItem)
	assert.ErrorIs(t, ParsedEntry{Client: "A", Item: "B", AmountCents: -1}.Validate(), ErrInvalidAmount)
}
