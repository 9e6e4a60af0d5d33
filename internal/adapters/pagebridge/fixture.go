package pagebridge

import (
	"context"
	"encoding/json"
)

// RunFixtureFetcher answers fetch requests from a canned location table,
// standing in for the page-context script. Handles missing from the table
// get a nil-location response. Used by the dev CLI.
func RunFixtureFetcher(ctx context.Context, transport Transport, locations map[string]string) {
	for {
		select {
		case payload := <-transport.Messages():
			var request fetchLocationMessage
			if err := json.Unmarshal(payload, &request); err != nil || request.Type != msgTypeFetchLocation {
				continue
			}

			var location *string
			if found, ok := locations[request.ScreenName]; ok {
				location = &found
			}

			response, err := json.Marshal(locationResponseMessage{
				Type:       msgTypeLocationResponse,
				ScreenName: request.ScreenName,
				RequestID:  request.RequestID,
				Location:   location,
			})
			if err != nil {
				continue
			}
			_ = transport.Send(ctx, response)
		case <-ctx.Done():
			return
		}
	}
}
