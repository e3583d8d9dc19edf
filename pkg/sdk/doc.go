// Package sdk is a Go client for the regassist HTTP API.
//
// The client sends the caller identity headers that the upstream auth layer would set,
// so it is meant for trusted backends and tooling.
//
//	c, _ := sdk.New("http://localhost:8080",
//	    sdk.WithAPIKey(os.Getenv("REGASSIST_API_KEY")),
//	    sdk.WithUser("u-42", sdk.RolePremium),
//	)
//	ans, err := c.Ask(ctx, sdk.AskRequest{Message: "Quelle norme pour les issues de secours ?"})
//
// Streaming delivers events as they arrive and returns when the stream ends:
//
//	err := c.Stream(ctx, sdk.AskRequest{Message: q}, func(ev sdk.Event) error {
//	    if ev.Type == sdk.EventDelta {
//	        fmt.Print(ev.Text)
//	    }
//	    return nil
//	})
package sdk
