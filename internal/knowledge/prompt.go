package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

const searchResultsPlaceholder = "$search_results$"

// DefaultPromptTemplate lo completa Bedrock con los resultados recuperados y las instrucciones de formato.
//
//go:embed prompt_template.txt
var DefaultPromptTemplate string

// LoadPromptTemplate lee una plantilla propia o devuelve la embebida si path está vacío.
func LoadPromptTemplate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPromptTemplate, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}
	tpl := string(raw)
	if !strings.Contains(tpl, searchResultsPlaceholder) {
		return "", fmt.Errorf("prompt template %s is missing %s", path, searchResultsPlaceholder)
	}
	return tpl, nil
}
