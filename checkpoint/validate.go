package checkpoint

// validate decodes every entry payload and checks that the root and all
// referenced ids fall inside the table. Nothing is constructed.
func validate(s *State) ([]payload, error) {
	n := len(s.Objects)
	if n == 0 {
		return nil, newError(ErrMalformed, "empty object table")
	}
	if int(s.Root) >= n {
		return nil, newError(ErrMalformed, "root id %d out of range (%d objects)", s.Root, n)
	}

	payloads := make([]payload, n)
	for i, e := range s.Objects {
		if !e.Tag.Valid() {
			return nil, newError(ErrMalformed, "entry %d: unknown tag %d", i, uint8(e.Tag))
		}
		p, err := decodePayload(e.Tag, e.Payload)
		if err != nil {
			return nil, wrapError(ErrShapeMismatch, err, "entry %d (%s)", i, e.Tag)
		}
		for _, ref := range p.refs() {
			if int(ref) >= n {
				return nil, newError(ErrMalformed, "entry %d (%s): id %d out of range (%d objects)", i, e.Tag, ref, n)
			}
		}
		payloads[i] = p
	}
	return payloads, nil
}
