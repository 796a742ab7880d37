package isu

import (
	"sync"

	browser "github.com/EDDYCJY/fake-useragent"
)

// fallbackUserAgent is used when the browser list could not be loaded.
const fallbackUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// the browser package shares one unsynchronized rand source
var userAgentMutex sync.Mutex

// randomUserAgent picks a desktop browser's user agent.
func randomUserAgent() string {
	userAgentMutex.Lock()
	userAgent := browser.Computer()
	userAgentMutex.Unlock()

	if userAgent == "" {
		return fallbackUserAgent
	}
	return userAgent
}
