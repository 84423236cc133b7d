/*
File Name:  system.go
Copyright:  vl1mesh contributors

Build-time system facts offered to root peers in HELLO, per spec 4.4
step 5. These describe the running binary, not any per-peer state.
*/

package peer

import (
	"math/bits"
	"runtime"
)

var (
	systemArch        = runtime.GOARCH
	systemOSName      = runtime.GOOS
	systemPointerBits = uint64(bits.UintSize)
)
