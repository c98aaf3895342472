package docparse

import (
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

// parseHTML converts an HTML document to markdown and reuses the
// markdown structural parser. The table plugin keeps HTML tables as
// pipe tables, which the goldmark table extension then picks up.
func parseHTML(content []byte, mdParser *markdownParser) (*Result, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	markdown, err := converter.ConvertString(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to convert html: %w", err)
	}

	return mdParser.Parse([]byte(markdown))
}
