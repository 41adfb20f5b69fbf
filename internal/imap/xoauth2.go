package imap

import "github.com/emersion/go-sasl"

// xoauth2Client implements the SASL XOAUTH2 mechanism used by Gmail and
// Outlook for bearer-token IMAP logins.
type xoauth2Client struct {
	username string
	token    string
}

func newXOAuth2Client(username, token string) sasl.Client {
	return &xoauth2Client{username: username, token: token}
}

func (c *xoauth2Client) Start() (string, []byte, error) {
	resp := []byte("user=" + c.username + "\x01auth=Bearer " + c.token + "\x01\x01")
	return "XOAUTH2", resp, nil
}

// Next answers a server error challenge with an empty response, prompting
// the server to fail the exchange with a proper NO reply.
func (c *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	return []byte{}, nil
}
