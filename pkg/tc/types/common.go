package types

// CmdLineGenerator is an interface for generating tc command line args for a tc object
type CmdLineGenerator interface {
	// GenCmdLineArgs returns tc command line arguments which can be incorporated
	// when invoking tc command via shell
	GenCmdLineArgs() []string
}

// compare first with second. They are equal if:
//  1. first and second point to the same address (nil or otherwise)
//  2. first and second contain the same value
//  3. if nilVal != nil
//     3.1 first is not nil and *nilVal equals to *first
//     3.2 second is not nil and *nilVal equals to *second
func compare[C comparable](first *C, second *C, nilVal *C) bool {
	if first == second {
		return true
	}

	if first != nil && second != nil {
		return *first == *second
	}

	if nilVal != nil {
		if first != nil && *first == *nilVal {
			return true
		}
		if second != nil && *second == *nilVal {
			return true
		}
	}
	return false
}
