package importer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripMarkup убирает HTML-разметку из ячейки (описания, выгруженные из веб-каталогов).
// Текст без тегов возвращается как есть; при ошибке разбора тоже.
func StripMarkup(cell string) string {
	if !looksLikeMarkup(cell) {
		return cell
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cell))
	if err != nil {
		return cell
	}

	// переносы строк и ячейки превращаются в пробелы, чтобы не склеивать слова
	doc.Find("br, p, div, li, td, th, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	doc.Find("script, style").Remove()

	return strings.Join(strings.Fields(doc.Text()), " ")
}

func looksLikeMarkup(cell string) bool {
	open := strings.IndexByte(cell, '<')
	if open < 0 {
		return strings.Contains(cell, "&") && strings.Contains(cell, ";")
	}
	return strings.IndexByte(cell[open:], '>') > 0
}
