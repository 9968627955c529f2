//go:build !unix

package llm

import "os"

var terminateSignal = os.Kill
