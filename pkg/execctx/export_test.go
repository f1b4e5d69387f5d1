package execctx

// ResetPolicy unfreezes and sets the disposed policy between tests.
func ResetPolicy(p Policy) {
	policyFrozen.Store(false)
	policy.Store(int32(p))
}
