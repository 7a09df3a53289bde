package gemini

import "strings"

// Voice describes a prebuilt Gemini speech voice.
type Voice struct {
	Name   string
	Gender string
	Style  string
}

// Voices lists the prebuilt voices accepted by the Gemini speech models.
var Voices = []Voice{
	{Name: "Aoede", Gender: "Female", Style: "Breezy"},
	{Name: "Zephyr", Gender: "Female", Style: "Bright"},
	{Name: "Kore", Gender: "Female", Style: "Firm"},
	{Name: "Leda", Gender: "Female", Style: "Youthful"},
	{Name: "Callirrhoe", Gender: "Female", Style: "Easy-going"},
	{Name: "Autonoe", Gender: "Female", Style: "Bright"},
	{Name: "Despina", Gender: "Female", Style: "Smooth"},
	{Name: "Erinome", Gender: "Female", Style: "Clear"},
	{Name: "Laomedeia", Gender: "Female", Style: "Upbeat"},
	{Name: "Achernar", Gender: "Female", Style: "Soft"},
	{Name: "Gacrux", Gender: "Female", Style: "Mature"},
	{Name: "Pulcherrima", Gender: "Female", Style: "Forward"},
	{Name: "Vindemiatrix", Gender: "Female", Style: "Gentle"},
	{Name: "Sulafat", Gender: "Female", Style: "Warm"},
	{Name: "Algenib", Gender: "Male", Style: "Gravelly"},
	{Name: "Charon", Gender: "Male", Style: "Informative"},
	{Name: "Fenrir", Gender: "Male", Style: "Excitable"},
	{Name: "Puck", Gender: "Male", Style: "Upbeat"},
	{Name: "Orus", Gender: "Male", Style: "Firm"},
	{Name: "Enceladus", Gender: "Male", Style: "Breathy"},
	{Name: "Iapetus", Gender: "Male", Style: "Clear"},
	{Name: "Umbriel", Gender: "Male", Style: "Easy-going"},
	{Name: "Algieba", Gender: "Male", Style: "Smooth"},
	{Name: "Rasalgethi", Gender: "Male", Style: "Informative"},
	{Name: "Alnilam", Gender: "Male", Style: "Firm"},
	{Name: "Schedar", Gender: "Male", Style: "Even"},
	{Name: "Achird", Gender: "Male", Style: "Friendly"},
	{Name: "Zubenelgenubi", Gender: "Male", Style: "Casual"},
	{Name: "Sadachbia", Gender: "Male", Style: "Lively"},
	{Name: "Sadaltager", Gender: "Male", Style: "Knowledgeable"},
}

// LookupVoice finds a voice by name, ignoring case.
func LookupVoice(name string) (Voice, bool) {
	for _, v := range Voices {
		if strings.EqualFold(v.Name, strings.TrimSpace(name)) {
			return v, true
		}
	}
	return Voice{}, false
}
