package content

import (
	"fmt"
	"strings"
)

// systemPrompt instructs the model to answer with a single XML entry.
const systemPrompt = `You are a helpful assistant in 2 languages, English and Deutsch.
You give an explanation and example sentences following the format of the entries provided.
You only give the xml output, nothing else.
Make sure to only use the proper language in each field.`

type example struct {
	input, headword, translation, explanation, de, en string
}

var fewShot = []example{
	{"abfahren", "abfahren", "to depart",
		"A verb meaning to leave or depart from a place.",
		"Der letzte Bus fährt gleich ab, wir müssen uns beeilen!",
		"The last bus is leaving soon, we need to hurry!"},
	{"der Vorschlag", "der Vorschlag", "suggestion",
		"A noun meaning a proposal or suggestion for consideration.",
		"Dein Vorschlag für den Wochenendausflug klingt fantastisch!",
		"Your suggestion for the weekend trip sounds fantastic!"},
	{"aufpassen", "aufpassen", "to pay attention",
		"A verb meaning to be careful or watchful.",
		"Pass auf den heißen Kaffee auf, er ist gerade frisch gebrüht!",
		"Watch out for the hot coffee, it's freshly brewed!"},
	{"die Gelegenheit", "die Gelegenheit", "opportunity",
		"A noun meaning opportunity or occasion.",
		"Diese Gelegenheit kommt vielleicht nie wieder, du solltest sie nutzen.",
		"This opportunity might never come again, you should take it."},
	{"einverstanden", "einverstanden", "agreed",
		"An adjective meaning to be in agreement.",
		"Wenn alle einverstanden sind, können wir das Projekt starten.",
		"If everyone agrees, we can start the project."},
}

// ExposurePrompt builds the few-shot XML document that ends with an open
// entry for item, leaving the model to complete its <output>.
func ExposurePrompt(item string) string {
	var b strings.Builder
	b.WriteString("<data>\n")
	for _, ex := range fewShot {
		fmt.Fprintf(&b, `    <entry>
        <input>%s</input>
        <output>
            <konzept>%s --- %s</konzept>
            <explanation>%s</explanation>
            <de>%s</de>
            <en>%s</en>
        </output>
    </entry>
`, ex.input, ex.headword, ex.translation, ex.explanation, ex.de, ex.en)
	}
	fmt.Fprintf(&b, "    <entry>\n        <input>%s</input>", item)
	return b.String()
}
