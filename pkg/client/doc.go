// Package client is a Go client for the KnowWho HTTP API.
//
//	c, _ := client.New("http://localhost:8080", client.WithAPIKey(key))
//	view, _ := c.View(ctx, "demo-battery-thermal", client.ViewState{SelectedID: "E004"})
//
// Briefs and the change feed are server-sent event streams:
//
//	s, _ := c.Brief(ctx, "demo-battery-thermal", "E004", client.BriefOptions{Language: "en"})
//	defer s.Close()
//	for {
//	    ev, err := s.Next()
//	    if err != nil {
//	        break
//	    }
//	    fmt.Println(ev.Name, string(ev.Data))
//	}
//
// Requests are retried with exponential backoff on transport errors, 429 and
// 5xx responses. Other 4xx responses fail immediately with an *APIError.
package client
