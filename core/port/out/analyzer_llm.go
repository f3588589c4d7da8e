package out

import "context"

// TextCompleter is the text-generation service the extraction engine talks
// to. The response is free-form text; callers must not assume it is valid
// JSON.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
