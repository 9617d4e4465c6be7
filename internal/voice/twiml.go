package voice

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// twimlResponse models the <Response><Connect><ConversationRelay .../></Connect></Response>
// document returned to Twilio for an inbound call.
type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

type twimlConnect struct {
	Relay twimlConversationRelay `xml:"ConversationRelay"`
}

type twimlConversationRelay struct {
	URL             string `xml:"url,attr"`
	WelcomeGreeting string `xml:"welcomeGreeting,attr,omitempty"`
	Voice           string `xml:"voice,attr,omitempty"`
	// Controls whether caller speech cuts the greeting short.
	WelcomeGreetingInterruptible string `xml:"welcomeGreetingInterruptible,attr,omitempty"`
}

// RenderConnectTwiML produces the TwiML that hands the call off to the
// ConversationRelay websocket at url.
func RenderConnectTwiML(url, welcomeGreeting, voice string) (string, error) {
	doc := twimlResponse{
		Connect: twimlConnect{
			Relay: twimlConversationRelay{
				URL:             url,
				WelcomeGreeting: welcomeGreeting,
				Voice:           voice,
			},
		},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("voice: render twiml: %w", err)
	}
	buf.WriteString("\n")
	return buf.String(), nil
}
