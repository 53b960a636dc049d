package portal

import (
	"reflect"

	"github.com/godbus/dbus/v5"
)

var (
	boolSignature   = dbus.SignatureOfType(reflect.TypeOf(false))
	stringSignature = dbus.SignatureOfType(reflect.TypeOf(""))
	uint32Signature = dbus.SignatureOfType(reflect.TypeOf(uint32(0)))
)

func fromBool(input bool) dbus.Variant {
	return dbus.MakeVariantWithSignature(input, boolSignature)
}

func fromString(input string) dbus.Variant {
	return dbus.MakeVariantWithSignature(input, stringSignature)
}

func fromUint32(input uint32) dbus.Variant {
	return dbus.MakeVariantWithSignature(input, uint32Signature)
}

// parseStreams decodes the a(ua{sv}) "streams" result of Start. Entries that
// do not carry a node id are skipped.
func parseStreams(value any) []Stream {
	var rawStreams [][]any
	switch rs := value.(type) {
	case [][]any:
		rawStreams = rs
	case []any:
		for _, r := range rs {
			if s, ok := r.([]any); ok {
				rawStreams = append(rawStreams, s)
			}
		}
	default:
		return nil
	}

	streams := make([]Stream, 0, len(rawStreams))
	for _, streamSlice := range rawStreams {
		if len(streamSlice) < 2 {
			continue
		}
		nodeID, ok := streamSlice[0].(uint32)
		if !ok {
			continue
		}
		stream := Stream{NodeID: nodeID}

		props, _ := streamSlice[1].(map[string]dbus.Variant)
		if pos, ok := props["position"]; ok {
			if position, ok := parseInt32Pair(pos.Value()); ok {
				stream.Position = position
			}
		}
		if size, ok := props["size"]; ok {
			if parsedSize, ok := parseInt32Pair(size.Value()); ok {
				stream.Size = parsedSize
			}
		}
		if sourceType, ok := props["source_type"]; ok {
			if parsedType, ok := sourceType.Value().(uint32); ok {
				stream.SourceType = parsedType
			}
		}
		if mappingID, ok := props["mapping_id"]; ok {
			if parsedID, ok := mappingID.Value().(string); ok {
				stream.MappingID = parsedID
			}
		}
		if id, ok := props["id"]; ok {
			if parsedID, ok := id.Value().(string); ok {
				stream.ID = parsedID
			}
		}

		streams = append(streams, stream)
	}
	return streams
}

func parseInt32Pair(value any) ([2]int32, bool) {
	switch v := value.(type) {
	case []any:
		if len(v) < 2 {
			return [2]int32{}, false
		}
		left, ok := v[0].(int32)
		if !ok {
			return [2]int32{}, false
		}
		right, ok := v[1].(int32)
		if !ok {
			return [2]int32{}, false
		}
		return [2]int32{left, right}, true
	case []int32:
		if len(v) < 2 {
			return [2]int32{}, false
		}
		return [2]int32{v[0], v[1]}, true
	default:
		return [2]int32{}, false
	}
}
