package service

import "time"

// nowUTC is swapped in tests that need a fixed clock.
var nowUTC = func() time.Time { return time.Now().UTC() }
