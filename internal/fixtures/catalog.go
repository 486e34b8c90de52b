// Package fixtures генерирует синтетические каталоги для тестов и демонстрации
package fixtures

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"cotejo/matching"
)

// Колонки синтетических наборов
const (
	SourceIDColumn          = "codigo"
	SourceDescriptionColumn = "descricao"
	TargetIDColumn          = "id"
	TargetDescriptionColumn = "descricao_item"
	TargetStatusColumn      = "status"
)

var (
	productKinds = []string{
		"parafuso", "porca", "arruela", "rebite", "chave", "alicate", "martelo", "broca",
		"serra", "lixa", "cabo", "fio", "tomada", "disjuntor", "lampada", "mangueira",
		"torneira", "registro", "valvula", "conector", "abracadeira", "fita", "cola", "tinta",
	}
	productTraits = []string{
		"phillips", "sextavado", "inox", "galvanizado", "aco", "latao", "nylon", "borracha",
		"cromado", "zincado", "flexivel", "reforcado", "isolado", "bipolar", "tripolar", "branco",
		"preto", "azul", "industrial", "profissional",
	}
	units    = []string{"mm", "pol", "cm", "m", "kg", "un"}
	statuses = []string{"I-INCLUIDO", "A-ALTERADO", "E-EXCLUIDO"}
)

// Options параметры генерации
type Options struct {
	Seed       int64
	SourceRows int
	TargetRows int
	NoiseRate  float64 // доля целевых строк, искаженных опечатками и перестановками
	OrphanRate float64 // доля целевых строк без пары в источнике
}

// Catalog пара синтетических наборов
type Catalog struct {
	Source []*matching.Record
	Target []*matching.Record
}

// Schema возвращает схему колонок синтетических наборов
func Schema() matching.Schema {
	return matching.Schema{
		SourceDescription: SourceDescriptionColumn,
		SourceID:          SourceIDColumn,
		TargetDescription: TargetDescriptionColumn,
		TargetStatus:      TargetStatusColumn,
		TargetID:          TargetIDColumn,
	}
}

// Generate строит детерминированный каталог по зерну.
// Целевые строки получаются из строк источника с шумом; часть строк не имеет пары.
func Generate(opts Options) Catalog {
	faker := gofakeit.New(opts.Seed)

	descriptions := make([]string, opts.SourceRows)
	source := make([]*matching.Record, opts.SourceRows)
	for i := range source {
		descriptions[i] = productDescription(faker)
		source[i] = matching.NewRecordWithColumns(
			[]string{SourceIDColumn, SourceDescriptionColumn, "preco"},
			[]any{fmt.Sprintf("C%05d", i+1), descriptions[i], faker.Price(1, 500)},
		)
	}

	target := make([]*matching.Record, opts.TargetRows)
	for i := range target {
		var description string
		switch {
		case len(descriptions) == 0 || faker.Float64Range(0, 1) < opts.OrphanRate:
			description = productDescription(faker)
		case faker.Float64Range(0, 1) < opts.NoiseRate:
			description = addNoise(faker, descriptions[faker.Number(0, len(descriptions)-1)])
		default:
			description = descriptions[faker.Number(0, len(descriptions)-1)]
		}
		target[i] = matching.NewRecordWithColumns(
			[]string{TargetIDColumn, TargetDescriptionColumn, TargetStatusColumn},
			[]any{fmt.Sprintf("G%05d", i+1), description, faker.RandomString(statuses)},
		)
	}

	return Catalog{Source: source, Target: target}
}

func productDescription(faker *gofakeit.Faker) string {
	parts := []string{
		faker.RandomString(productKinds),
		faker.RandomString(productTraits),
	}
	if faker.Bool() {
		parts = append(parts, faker.RandomString(productTraits))
	}
	parts = append(parts, fmt.Sprintf("%d%s", faker.Number(1, 120), faker.RandomString(units)))
	if faker.Bool() {
		parts = append(parts, strings.ToUpper(faker.Numerify("REF-####")))
	}
	return strings.Join(parts, " ")
}

// addNoise меняет регистр, переставляет слова и выбрасывает одну букву
func addNoise(faker *gofakeit.Faker, description string) string {
	words := strings.Fields(description)
	if len(words) > 1 {
		i := faker.Number(0, len(words)-2)
		words[i], words[i+1] = words[i+1], words[i]
	}
	if len(words) > 0 {
		i := faker.Number(0, len(words)-1)
		if w := []rune(words[i]); len(w) > 4 {
			j := faker.Number(1, len(w)-2)
			words[i] = string(append(w[:j:j], w[j+1:]...))
		}
	}
	noisy := strings.Join(words, " ")
	if faker.Bool() {
		noisy = strings.ToUpper(noisy)
	}
	return noisy
}
