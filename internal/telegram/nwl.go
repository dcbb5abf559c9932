package telegram

const ciNWL81 = 0x81

// parseNWL consumes the rarely-used Network Layer: one info byte following
// CI 0x81. No NWL semantics beyond the byte itself are understood.
func parseNWL(t *Telegram) error {
	if !t.need(1) {
		return nil
	}
	var ci = t.remaining()[0]
	if ci != ciNWL81 {
		return nil
	}
	t.NWL.Present = true
	t.NWL.CI = ci
	t.explain(t.Parsed, 1, Protocol, UnderstandingFull, "%02x nwl-ci-field", ci)
	t.Parsed++

	if !t.need(1) {
		return nil
	}
	t.NWL.Info = t.remaining()[0]
	t.explain(t.Parsed, 1, Protocol, UnderstandingPartial, "%02x nwl?", t.NWL.Info)
	t.Parsed++
	return nil
}
