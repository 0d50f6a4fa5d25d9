package generic

// Guard returns an *InvalidTransitionError unless current is one of allowed.
// Workflows call it before touching any field so a refused transition
// leaves the entity exactly as it was.
func Guard[S ~string](entity string, id int64, action string, current S, allowed ...S) error {
	for _, a := range allowed {
		if current == a {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return &InvalidTransitionError{
		Entity:  entity,
		ID:      id,
		Action:  action,
		Current: string(current),
		Allowed: names,
	}
}

// RequireActor rejects an empty actor id.
func RequireActor(actor Actor) error {
	if actor == "" {
		return Invalid("actor", "is required")
	}
	return nil
}
