package pipeline

import (
	"fmt"
	"sort"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
)

var fixedExportHeaders = []string{
	"Codi UPC", "Sigles", "Nom (cat)", "Nom (cast)", "Name (eng)", "Crèdits", "Departament", "Centre",
}

const validityExportHeader = "Vigent"

// ExportTable is the flat sheet handed to the spreadsheet writer. Highlight
// flags rows by index; cell values never carry the flag.
type ExportTable struct {
	Headers   []string
	Rows      [][]any
	Highlight map[int]bool
}

type programSlots struct {
	code  string
	label string
	slots int
}

// Project lays out one row per subject with one column per (program, slot),
// slots sized by the subject with most blocks in that program.
func Project(subjects []internal.Subject, highlight map[string]bool) ExportTable {
	programs := collectProgramSlots(subjects)

	headers := append([]string{}, fixedExportHeaders...)
	for _, p := range programs {
		for slot := 1; slot <= p.slots; slot++ {
			headers = append(headers, fmt.Sprintf("%s %d", p.label, slot))
		}
	}
	headers = append(headers, validityExportHeader)

	table := ExportTable{Headers: headers, Rows: make([][]any, 0, len(subjects)), Highlight: map[int]bool{}}
	for i, s := range subjects {
		row := make([]any, 0, len(headers))
		row = append(row, s.Code, s.Acronym, s.Name, s.NameSpanish, s.NameEnglish, creditsCell(s.Credits), s.Department, s.Centre)

		for _, p := range programs {
			blocks := blocksInProgram(s, p.code)
			for slot := 0; slot < p.slots; slot++ {
				if slot < len(blocks) {
					row = append(row, blocks[slot])
				} else {
					row = append(row, "")
				}
			}
		}
		row = append(row, s.Validity)

		table.Rows = append(table.Rows, row)
		if highlight[s.Code] {
			table.Highlight[i] = true
		}
	}

	return table
}

func collectProgramSlots(subjects []internal.Subject) []programSlots {
	maxByProgram := map[string]int{}
	for _, s := range subjects {
		counts := map[string]int{}
		for _, g := range s.Groups {
			counts[programKey(g.Program)]++
		}
		for code, n := range counts {
			if n > maxByProgram[code] {
				maxByProgram[code] = n
			}
		}
	}

	out := make([]programSlots, 0, len(maxByProgram))
	for code, n := range maxByProgram {
		out = append(out, programSlots{code: code, label: ProgramLabel(code), slots: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].label != out[j].label {
			return out[i].label < out[j].label
		}
		return out[i].code < out[j].code
	})
	return out
}

func blocksInProgram(s internal.Subject, code string) []string {
	out := []string{}
	for _, g := range s.Groups {
		if programKey(g.Program) == code {
			out = append(out, g.BlockName)
		}
	}
	return out
}

func programKey(program string) string {
	if program == "" {
		return OtherProgram
	}
	return program
}

func creditsCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
