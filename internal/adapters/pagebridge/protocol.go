package pagebridge

import "encoding/json"

// Wire protocol spoken with the page-context fetcher. Field names match the
// messages the injected script exchanges on the page.
const (
	msgTypeFetchLocation    = "__fetchLocation"
	msgTypeLocationResponse = "__locationResponse"
	msgTypeRateLimitInfo    = "__rateLimitInfo"
)

type envelope struct {
	Type string `json:"type"`
}

type fetchLocationMessage struct {
	Type       string `json:"type"`
	ScreenName string `json:"screenName"`
	RequestID  string `json:"requestId"`
}

type locationResponseMessage struct {
	Type          string  `json:"type"`
	ScreenName    string  `json:"screenName"`
	RequestID     string  `json:"requestId"`
	Location      *string `json:"location"`
	IsRateLimited bool    `json:"isRateLimited"`
}

// rateLimitInfoMessage is unsolicited: the fetcher broadcasts it whenever the
// host API declares a cool-down. ResetTime is epoch seconds (0 = none),
// WaitTime a fallback duration in milliseconds.
type rateLimitInfoMessage struct {
	Type      string `json:"type"`
	ResetTime int64  `json:"resetTime"`
	WaitTime  int64  `json:"waitTime"`
}

func messageType(payload []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}
