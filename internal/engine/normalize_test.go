package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Explosion im Kaufhaus", "Explosion im Kaufhaus"},
		{"url mention hashtag", "Explosion à Paris! https://t.co/abc @user #breaking", "Explosion à Paris!"},
		{"punctuation dropped", "Prise d'otages, situation critique.", "Prise dotages situation critique"},
		{"question and exclamation kept", "Schüsse am Hauptbahnhof?!", "Schüsse am Hauptbahnhof?!"},
		{"hyphen dropped", "Champs-Élysées", "ChampsÉlysées"},
		{"underscore and digits kept", "snake_case 42", "snake_case 42"},
		{"emoji dropped", "Feu 🔥🔥 au stade", "Feu  au stade"},
		{"accented mention", "@Gendarmerie_Île alerte", "alerte"},
		{"only noise", "  @a #b http://x  ", ""},
		{"no-break space", "Explosion\u00a0im Kaufhaus", "Explosion im Kaufhaus"},
		{"narrow no-break space", "Fusillade\u202fen cours\u00a0!", "Fusillade en cours !"},
		{"guillemets with thin spaces", "«\u202fAttentat\u202f»", "Attentat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Fusillade en cours près de la gare, coups de feu entendus URGENCE",
		"ht.tp://evil.example/x and more",
		"h@ttp#x",
		"Schießerei!!! 💥 https://example.org/a?b=c @polizei_berlin #Berlin",
		"http",
		"   trailing   ",
		"«Attentat» — «Bombe» … ?",
		"Explosion\u00a0im\u202fKaufhaus",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}
