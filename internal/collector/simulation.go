package collector

import (
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Simulation generates eyewitness-style posts about physical threats, 80% on
// topic, for demonstrations and load tests.
type Simulation struct {
	*generator
}

// NewSimulation creates a deterministic threat scenario collector for the given seed.
func NewSimulation(seed uint64, clock clockwork.Clock) *Simulation {
	g := newGenerator("simulation", seed, clock)
	g.userPrefix = "witness"
	g.eventShare = 0.8
	g.maxAge = 30 * time.Minute
	g.scenarios = threatScenarios
	g.noise = dailyLifePosts
	return &Simulation{g}
}

var threatScenarios = map[domain.Language][]scenario{
	domain.LanguageFrench: {
		{
			Name: "Fusillade",
			Posts: []string{
				"Fusillade en cours près de la station République! Des coups de feu entendus",
				"Tir actif dans le métro, police sur place, évitez le secteur",
				"Attention fusillade centre-ville! Prenez refuge immédiatement",
				"Coups de feu répétés rue de la Paix, situation confuse",
				"Tirs entendus gare du Nord, panique générale #fusillade",
			},
		},
		{
			Name: "Attaque véhicule",
			Posts: []string{
				"Camion fonce dans la foule sur les Champs-Élysées! Nombreux blessés",
				"Véhicule bélier devant la préfecture, intention terroriste suspectée",
				"Voiture folle dans zone piétonne, fuite du conducteur",
				"Attaque au véhicule place Bellecour, cris et panique",
			},
		},
		{
			Name: "Explosion",
			Posts: []string{
				"Grosse explosion entendue près aéroport CDG, fumée noire visible",
				"Détonation centre commercial, vitres brisées, évacuation en cours",
				"Explosion suspecte gare de Lyon, police et secours massifs",
				"Bruit d'explosion rue de Rivoli, sirènes partout",
			},
		},
		{
			Name: "Agressions arme",
			Posts: []string{
				"Homme armé d'un couteau dans le RER B, agressions multiples",
				"Attaque au couteau marché aux puces, blessés graves",
				"Individu armé fait irruption dans café, prise d'otages possible",
				"Agressions en série avec arme blanche parc Montsouris",
			},
		},
		{
			Name: "Émeute",
			Posts: []string{
				"Affrontements violents police-manifestants, projectiles lancés",
				"Émeute en banlieue, voitures incendiées, magasins pillés",
				"Violences urbaines quartier nord, barricades en feu",
				"Groupe casseurs centre-ville, vitrines brisées",
			},
		},
	},
	domain.LanguageGerman: {
		{
			Name: "Schießerei",
			Posts: []string{
				"Schießerei am Hauptbahnhof! Schüsse gehört, Polizei im Einsatz",
				"Aktiver Schütze in U-Bahn Station, Bereich absperren",
				"Notfall: Schusswaffengebrauch Alexanderplatz, Menschen flüchten",
				"Wiederholte Schüsse Friedrichstraße, Situation unklar",
				"Kugeln gehört am Ku'damm, allgemeine Panik #Schießerei",
			},
		},
		{
			Name: "Fahrzeugangriff",
			Posts: []string{
				"Laster rast in Menschenmenge am Brandenburger Tor! Viele Verletzte",
				"Rammfahrzeug vor Rathaus, mutmaßlich terroristischer Hintergrund",
				"Auto rast durch Fußgängerzone, Fahrer flüchtig",
				"Fahrzeugattacke Marienplatz, Schreie und Panik",
			},
		},
		{
			Name: "Explosion",
			Posts: []string{
				"Starke Explosion nahe Flughafen BER, schwarzer Rauch sichtbar",
				"Detonation Einkaufszentrum, zerbrochene Fenster, Evakuierung läuft",
				"Verdächtige Explosion Hauptbahnhof, massive Polizei- und Rettungskräfte",
				"Explosionsgeräusch Unter den Linden, Sirenen überall",
			},
		},
		{
			Name: "Messerangriffe",
			Posts: []string{
				"Mann mit Messer in S-Bahn, mehrere Angriffe gemeldet",
				"Messerattacke Flohmarkt, schwer verletzte Opfer",
				"Bewaffneter Eindringling in Café, mögliche Geiselnahme",
				"Serienangriffe mit Messer im Tiergarten Park",
			},
		},
		{
			Name: "Krawalle",
			Posts: []string{
				"Zusammenstöße Polizei-Demonstranten, Projektile geworfen",
				"Krawalle Vorstadt, brennende Autos, geplünderte Geschäfte",
				"Urbane Gewalt Nordviertel, brennende Barrikaden",
				"Randalierer Innenstadt, eingeschlagene Schaufenster",
			},
		},
	},
}

var dailyLifePosts = map[domain.Language][]string{
	domain.LanguageFrench: {
		"Beau temps pour une balade aujourd'hui",
		"Quelqu'un a testé le nouveau restaurant italien?",
		"Trafic normal sur le périphérique ce matin",
		"Concert sympa hier soir, bonne ambiance",
	},
	domain.LanguageGerman: {
		"Schönes Wetter für einen Spaziergang heute",
		"Hat jemand das neue italienische Restaurant probiert?",
		"Normaler Verkehr auf dem Ring heute Morgen",
		"Gutes Konzert gestern Abend, tolle Stimmung",
	},
}
