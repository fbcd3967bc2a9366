package collector

import (
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Mock generates benign posts about trending events, 70% on topic.
type Mock struct {
	*generator
}

// NewMock creates a deterministic mock collector for the given seed.
func NewMock(seed uint64, clock clockwork.Clock) *Mock {
	g := newGenerator("mock", seed, clock)
	g.userPrefix = "user"
	g.eventShare = 0.7
	g.maxAge = time.Hour
	g.scenarios = trendingScenarios
	g.noise = everydayPosts
	return &Mock{g}
}

var trendingScenarios = map[domain.Language][]scenario{
	domain.LanguageFrench: {
		{
			Name: "Grève des transports",
			Posts: []string{
				"Grève des transports aujourd'hui, métro complètement arrêté #grève",
				"Comment aller au travail avec cette grève? C'est impossible!",
				"La grève des transports paralyse toute la ville ce matin",
				"Solidarité avec les grévistes des transports en commun",
				"Quand est-ce que cette grève va se terminer? Je suis bloqué",
			},
		},
		{
			Name: "Nouvelle loi environnement",
			Posts: []string{
				"La nouvelle loi sur l'environnement est enfin adoptée au parlement",
				"Impact de la nouvelle loi environnement sur les entreprises locales",
				"Cette loi environnement va changer beaucoup de choses pour le climat",
				"Les écologistes satisfaits de la nouvelle législation verte",
			},
		},
	},
	domain.LanguageGerman: {
		{
			Name: "Verkehrsstreik",
			Posts: []string{
				"Verkehrsstreik heute, U-Bahn komplett eingestellt #streik",
				"Wie komme ich zur Arbeit mit diesem Streik? Unmöglich!",
				"Der Verkehrsstreik lähmt die gesamte Stadt heute Morgen",
				"Solidarität mit den streikenden Verkehrsarbeitern",
				"Wann endet dieser Streik endlich? Ich sitze fest",
			},
		},
		{
			Name: "Neues Umweltgesetz",
			Posts: []string{
				"Das neue Umweltgesetz wurde endlich im Parlament verabschiedet",
				"Auswirkungen des neuen Umweltgesetzes auf Unternehmen vor Ort",
				"Dieses Umweltgesetz wird vieles verändern für das Klima",
				"Umweltschützer zufrieden mit der neuen Gesetzgebung",
			},
		},
	},
}

var everydayPosts = map[domain.Language][]string{
	domain.LanguageFrench: {
		"Beau temps aujourd'hui, parfait pour une promenade",
		"Quelqu'un a des recommandations de bons restaurants?",
		"Je viens de finir ce livre, il était incroyable!",
		"Quel film regarder ce weekend? Des suggestions?",
		"Le trafic est terrible en ce moment sur le périphérique",
	},
	domain.LanguageGerman: {
		"Schönes Wetter heute, perfekt für einen Spaziergang",
		"Hat jemand Empfehlungen für gute Restaurants?",
		"Ich habe gerade dieses Buch beendet, es war unglaublich!",
		"Welchen Film soll ich dieses Wochenende schauen? Vorschläge?",
		"Der Verkehr ist momentan schrecklich auf der Ringstraße",
	},
}
