package http

import (
	"fmt"
	"regexp"
)

const (
	// MaxLoggedResponseLength is the maximum length of response text to include
	// in logs. Responses longer than this are truncated so raw model output
	// (which may quote the reviewed source) never lands in log aggregators.
	MaxLoggedResponseLength = 200
)

// TruncateForLogging safely truncates a response string for logging purposes.
// Returns the first MaxLoggedResponseLength characters plus a truncation
// indicator if truncated.
func TruncateForLogging(response string) string {
	if len(response) <= MaxLoggedResponseLength {
		return response
	}
	return response[:MaxLoggedResponseLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(response))
}

var urlSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(api_key)=([^&"\s]+)`),
	regexp.MustCompile(`(apiKey)=([^&"\s]+)`),
	regexp.MustCompile(`(access_token)=([^&"\s]+)`),
	regexp.MustCompile(`(token)=([^&"\s]+)`),
	regexp.MustCompile(`(key)=([^&"\s]+)`),
}

// RedactURLSecrets redacts API keys and other secrets from URLs in error
// messages. Gemini-style endpoints carry the key as a ?key= query parameter,
// so a raw transport error would otherwise leak it.
//
// Example:
//
//	input:  "https://api.example.com/endpoint?key=secret123&foo=bar"
//	output: "https://api.example.com/endpoint?key=[REDACTED]&foo=bar"
func RedactURLSecrets(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, re := range urlSecretPatterns {
		result = re.ReplaceAllString(result, "$1=[REDACTED]")
	}
	return result
}
