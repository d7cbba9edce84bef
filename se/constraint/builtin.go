package constraint

var (
	Boolean = NewDomain("boolean", Rules{Complement: booleanComplement})
	True    = Boolean.Value("TRUE")
	False   = Boolean.Value("FALSE")

	Nullness = NewDomain("nullness", Rules{Complement: nullnessComplement})
	Null     = Nullness.Value("NULL")
	NotNull  = Nullness.Value("NOT_NULL")
)

// The complements compare names rather than the variables above, which
// would make the domain initialisation refer to itself.
func booleanComplement(c Constraint) Constraint {
	switch c.String() {
	case "TRUE":
		return c.Domain().Value("FALSE")
	case "FALSE":
		return c.Domain().Value("TRUE")
	}
	return nil
}

// Only NULL is exact: a value known to be non-null may still be any object.
func nullnessComplement(c Constraint) Constraint {
	if c.String() == "NULL" {
		return c.Domain().Value("NOT_NULL")
	}
	return nil
}

// FromBool returns TRUE or FALSE.
func FromBool(b bool) Constraint {
	if b {
		return True
	}
	return False
}
