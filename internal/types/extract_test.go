package types

import "testing"

func TestExtractJSONObject_Robustness(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Clean JSON",
			input: `{"intent": "chat", "confidence": "high"}`,
			want:  `{"intent": "chat", "confidence": "high"}`,
		},
		{
			name:  "Markdown Wrapped",
			input: "```json\n" + `{"intent": "query"}` + "\n```",
			want:  `{"intent": "query"}`,
		},
		{
			name:  "Prefix Text",
			input: `Sure! Here is the classification: {"intent": "rerank"}`,
			want:  `{"intent": "rerank"}`,
		},
		{
			name:  "Suffix Text",
			input: `{"intent": "chat"} Let me know if you need anything else.`,
			want:  `{"intent": "chat"}`,
		},
		{
			name:  "Nested Braces",
			input: `prefix {"delta": {"add_keywords": ["a{b}"]}, "confirmation": "ok"} suffix`,
			want:  `{"delta": {"add_keywords": ["a{b}"]}, "confirmation": "ok"}`,
		},
		{
			name:  "Braces Inside Strings",
			input: `{"confirmation": "added {urgent} to keywords"}`,
			want:  `{"confirmation": "added {urgent} to keywords"}`,
		},
		{
			name:  "Escaped Quotes",
			input: `{"confirmation": "she said \"ok\""}`,
			want:  `{"confirmation": "she said \"ok\""}`,
		},
		{
			name:  "Truncated JSON",
			input: `{"intent": "chat", "confidence":`,
			want:  "",
		},
		{
			name:  "Invalid First Valid Second",
			input: `{"broken": } then {"intent": "chat"}`,
			want:  `{"intent": "chat"}`,
		},
		{
			name:  "No JSON At All",
			input: `I'm sorry, I can't help with that.`,
			want:  "",
		},
		{
			name:  "Empty Input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSONObject(tt.input)
			if got != tt.want {
				t.Errorf("ExtractJSONObject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnmarshalLoose(t *testing.T) {
	var c IntentClassification
	if !UnmarshalLoose(`The intent is: {"intent": "query", "confidence": "high"} - done`, &c) {
		t.Fatal("UnmarshalLoose() = false, want true")
	}
	if c.Intent != IntentQuery || c.Confidence != "high" {
		t.Errorf("unexpected classification: %+v", c)
	}

	if UnmarshalLoose("total garbage", &c) {
		t.Error("UnmarshalLoose() = true for garbage input")
	}
}
