package build

import "os"

// Release identifies which of the three supported build types the binary
// was built as: "standard", "dev", or "testing". It governs the constants
// selected by Select and gates the panic behavior of Critical and Severe.
//
// It is read once from an environment variable, rather than a
// linker-injected build tag file, so a single binary can be exercised under
// "testing" constants without a separate build.
var Release = func() string {
	if r := os.Getenv("SUBSPACE_FARMER_RELEASE"); r != "" {
		return r
	}
	return "standard"
}()

// DEBUG controls whether Critical and Severe panic in addition to logging.
var DEBUG = os.Getenv("SUBSPACE_FARMER_DEBUG") == "1"
