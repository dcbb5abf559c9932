package dvrecord

// FormatBytes reconstructs the DIF/VIF template of a full-frame parse: the
// concatenation of each entry's HeaderBytes in order, with the length
// prefix and value bytes stripped out. A compact frame (TPL CI 0x79) omits
// exactly these bytes and replays them from a previously-seen full frame
// sharing the same format_signature.
func (r Result) FormatBytes() []byte {
	var out []byte
	for _, e := range r.Entries {
		out = append(out, e.HeaderBytes...)
	}
	return out
}

// ParseCompact reconstructs DVEntry values from a compact frame: formatBytes
// is the DIF/VIF/VIFE template (no length prefix, no data) learned from an
// earlier full frame, dataBytes is the compact frame's data-only payload.
// The two are walked in lockstep: each record's header comes from
// formatBytes, its value length and bytes come from dataBytes.
func ParseCompact(formatBytes, dataBytes []byte) Result {
	var res = Result{ByKey: map[string]int{}, MfctIndex: -1}
	var fpos, dpos int

	for fpos < len(formatBytes) {
		var start = fpos
		var difByte = formatBytes[fpos]
		if difByte&0x7F == 0x0F {
			res.MfctIndex = dpos
			break
		}

		var dif = ParseDIF(difByte)
		fpos++
		var shift uint = 4
		for dif.Extension && fpos < len(formatBytes) {
			var difeByte = formatBytes[fpos]
			dif.ApplyDIFE(difeByte, shift)
			shift += 4
			fpos++
			dif.Extension = difeByte&0x80 != 0
		}
		if fpos >= len(formatBytes) {
			break
		}
		var vif = formatBytes[fpos]
		fpos++

		var vifes []byte
		var resolved Resolved
		var resolvedOK bool
		var lastByte = vif

		switch vif & 0x7F {
		case vifExtensionFD:
			if fpos >= len(formatBytes) {
				return res
			}
			lastByte = formatBytes[fpos]
			vifes = append(vifes, lastByte)
			resolved = ResolveExtensionFD(lastByte)
			resolvedOK = true
			fpos++
		case vifExtensionFB:
			if fpos >= len(formatBytes) {
				return res
			}
			lastByte = formatBytes[fpos]
			vifes = append(vifes, lastByte)
			resolved = ResolveExtensionFB(lastByte)
			resolvedOK = true
			fpos++
		case 0x6F:
			if fpos >= len(formatBytes) {
				return res
			}
			lastByte = formatBytes[fpos]
			vifes = append(vifes, lastByte)
			resolved = ResolveExtension6F(lastByte)
			resolvedOK = true
			fpos++
		case vifManufSpec:
			resolved = ResolveManufacturerVIF()
			resolvedOK = true
		default:
			resolved, resolvedOK = ResolveVIF(vif)
		}
		for lastByte&0x80 != 0 && fpos < len(formatBytes) {
			lastByte = formatBytes[fpos]
			vifes = append(vifes, lastByte)
			fpos++
		}
		if !resolvedOK {
			resolved = Resolved{Key: "unknown vif", Unit: "", Scale: 1}
		}

		var headerBytes = append([]byte{}, formatBytes[start:fpos]...)

		var length, isVariable, ok = dataLength(dif.Raw & 0x0F)
		if !ok {
			break
		}
		if isVariable {
			// Compact frames do not carry a variable-length prefix in the
			// template; treat as malformed for this minimal form.
			break
		}
		if dpos+length > len(dataBytes) {
			break
		}
		var valueBytes = append([]byte{}, dataBytes[dpos:dpos+length]...)
		dpos += length

		var entry = DVEntry{
			Offset:          dpos - length,
			Length:          length,
			DIF:             dif.Raw,
			VIFE:            vifes,
			VIF:             vif,
			StorageNr:       dif.StorageNr | uint64(dif.StorageNrLSB),
			Tariff:          dif.Tariff,
			SubUnit:         dif.SubUnit,
			MeasurementType: dif.MeasurementType,
			ValueBytes:      valueBytes,
			HeaderBytes:     headerBytes,
			Key:             resolved.Key,
			ComputedUnit:    resolved.Unit,
			ComputedScale:   resolved.Scale,
		}
		entry.Value, entry.IsNumeric = decodeNumeric(dif.Raw&0x0F, valueBytes, resolved.Scale)

		res.Entries = append(res.Entries, entry)
		res.ByKey[disambiguate(res.ByKey, entry.Key)] = len(res.Entries) - 1
	}

	res.Consumed = dpos
	return res
}
