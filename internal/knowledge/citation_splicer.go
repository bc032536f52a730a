package knowledge

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Span es un rango de caracteres (code points) dentro del texto generado sin anotar,
// tal como lo reporta Bedrock.
type Span struct {
	Start int
	End   int
}

type CitationReference struct {
	Title string
	URL   string
}

// Citation vincula una parte de la respuesta con los documentos recuperados que la respaldan.
type Citation struct {
	Span       Span
	References []CitationReference
}

// SpliceCitations inserta " <url|[n]>" al final de cada span y agrega la lista de referencias.
//
// Las citas se procesan en el orden recibido. n es la posición 1-based en la lista original,
// así que una cita sin referencias consume su número aunque no produzca marcador.
// End se traduce a bytes sobre el texto sin anotar; cada inserción desplaza las
// siguientes en len(marker) bytes, acumulado en distance.
func SpliceCitations(text string, citations []Citation) string {
	out := text
	distance := 0
	offsets := newRuneOffsets(text)
	references := make([]string, 0, len(citations))

	for i, citation := range citations {
		index := i + 1
		if len(citation.References) == 0 {
			continue
		}
		title, url := referenceLabel(citation.References[0])

		marker := fmt.Sprintf(" <%s|[%d]>", url, index)
		at := insertionPoint(out, offsets.byteOffset(citation.Span.End)+distance)
		out = out[:at] + marker + out[at:]
		distance += len(marker)

		references = append(references, fmt.Sprintf("[%d] <%s|%s>", index, url, title))
	}

	return out + "\n\n" + strings.Join(references, "\n")
}

func referenceLabel(ref CitationReference) (title, url string) {
	title, url = strings.TrimSpace(ref.Title), strings.TrimSpace(ref.URL)
	if title == "" {
		title = url
	}
	if url == "" {
		url = title
	}
	return title, url
}

// runeOffsets traduce posiciones en caracteres a posiciones en bytes de un texto fijo.
type runeOffsets []int

func newRuneOffsets(text string) runeOffsets {
	if utf8.RuneCountInString(text) == len(text) {
		return nil
	}
	offsets := make(runeOffsets, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}

// byteOffset devuelve el byte donde empieza el carácter n. Fuera de rango se acota.
func (o runeOffsets) byteOffset(n int) int {
	if n < 0 {
		return 0
	}
	if o == nil {
		return n
	}
	if n >= len(o) {
		return o[len(o)-1]
	}
	return o[n]
}

// insertionPoint acota at a [0, len(s)] y lo mueve al siguiente límite de runa.
func insertionPoint(s string, at int) int {
	if at < 0 {
		return 0
	}
	if at > len(s) {
		return len(s)
	}
	for at < len(s) && !utf8.RuneStart(s[at]) {
		at++
	}
	return at
}
