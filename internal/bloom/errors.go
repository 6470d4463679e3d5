package bloom

import "errors"

// Errors returned by bloom object operations. The messages are the exact
// strings sent to clients, so they must not change between releases.
var (
	ErrNonScalingFilterFull     = errors.New("ERR non scaling filter is full")
	ErrMaxNumScalingFilters     = errors.New("ERR bloom object reached max number of filters")
	ErrExceedsMaxBloomSize      = errors.New("ERR operation exceeds bloom object memory limit")
	ErrFalsePositiveReachesZero = errors.New("ERR false positive degrades to 0 on scale out")
	ErrEncodeFailed             = errors.New("Failed to encode bloom object.")
	ErrDecodeFailed             = errors.New("ERR bloom object decoding failed")
	ErrDecodeUnsupportedVersion = errors.New("ERR bloom object decoding failed. Unsupported version")

	ErrErrorRateRange        = errors.New("ERR (0 < error rate range < 1)")
	ErrTighteningRatioRange  = errors.New("ERR (0 < tightening ratio range < 1)")
	ErrBadErrorRate          = errors.New("ERR bad error rate")
	ErrBadTighteningRatio    = errors.New("ERR bad tightening ratio")
	ErrBadExpansion          = errors.New("ERR bad expansion")
	ErrBadCapacity           = errors.New("ERR bad capacity")
	ErrCapacityLargerThan0   = errors.New("ERR (capacity should be larger than 0)")
	ErrInvalidSeed           = errors.New("ERR invalid seed")
	ErrInvalidInfoValue      = errors.New("ERR invalid information value")
	ErrUnknownArgument       = errors.New("ERR unknown argument received")
	ErrKeyExists             = errors.New("BUSYKEY Target key name already exists.")
	ErrItemExists            = errors.New("ERR item exists")
	ErrNotFound              = errors.New("ERR not found")

	ErrValidateScaleToExceedsMaxSize       = errors.New("ERR provided VALIDATESCALETO causes bloom object to exceed memory limit")
	ErrValidateScaleToFalsePositiveInvalid = errors.New("ERR provided VALIDATESCALETO causes false positive to degrade to 0")
)
