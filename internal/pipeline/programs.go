package pipeline

// ProgramNames maps program codes to their short names.
var ProgramNames = map[string]string{
	"823":  "GEF",
	"1328": "GREELEC",
	"1155": "GRETST",
	"1356": "MATT",
	"1383": "MCYBERS",
	"1476": "MEE",
	"948":  "MET",
	"1564": "MSEMD",
	"1334": "MEF",
	"953":  "MPHOTON",
}

const OtherProgram = "Other"

func ProgramLabel(code string) string {
	if code == "" || code == OtherProgram {
		return OtherProgram
	}
	if name, ok := ProgramNames[code]; ok {
		return name
	}
	return "Program " + code
}
