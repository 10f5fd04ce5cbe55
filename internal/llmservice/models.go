package llmservice

// DefaultModel is pinned: requests naming anything outside the
// supported set fall back to it rather than failing per-call.
const DefaultModel = "google/gemini-2.5-flash"

var supportedModels = map[string]bool{
	"google/gemini-2.5-flash": true,
	"google/gemini-2.5-pro":   true,
	"google/gemini-flash-1.5": true,
}

// modelAliases maps the short names callers keep sending to their
// provider ids.
var modelAliases = map[string]string{
	"gemini-2.5-flash": "google/gemini-2.5-flash",
	"gemini-2.5-pro":   "google/gemini-2.5-pro",
	"gemini-1.5-flash": "google/gemini-flash-1.5",
	"gemini-flash":     "google/gemini-2.5-flash",
}

// ResolveModel applies the model policy once per call: supported names
// pass through, known aliases are rewritten, everything else gets the
// default model.
func ResolveModel(requested string) string {
	if requested == "" {
		return DefaultModel
	}
	if supportedModels[requested] {
		return requested
	}
	if resolved, ok := modelAliases[requested]; ok {
		return resolved
	}
	return DefaultModel
}
