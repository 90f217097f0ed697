//nolint:prealloc
package cmdline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc"
	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc/types"
)

// parseHandleToken parses a handle token as printed by tc, which elides a
// zero major ("parent :1" means 0:1).
func parseHandleToken(tok string) (types.Handle, error) {
	if strings.HasPrefix(tok, ":") {
		tok = "0" + tok
	}
	return types.ParseHandle(tok)
}

// parseQDiscs parses line oriented `tc qdisc show` output, e.g.
//
//	qdisc htb 1: root refcnt 2 r2q 10 default 0 direct_packets_stat 0 direct_qlen 1000
//	qdisc ingress ffff: parent ffff:fff1 ----------------
//
// Qdiscs of any kind are surfaced; callers decide which ones they manage.
func parseQDiscs(out string) ([]types.QDisc, error) {
	var objs []types.QDisc
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] != "qdisc" || len(fields) < 4 {
			return nil, errors.Wrapf(tc.ErrParse, "unexpected qdisc line %q", line)
		}
		kind := types.QDiscType(fields[1])
		handle, err := parseHandleToken(fields[2])
		if err != nil {
			return nil, errors.Wrapf(tc.ErrParse, "qdisc line %q: %s", line, err)
		}

		var parent *types.Handle
		switch fields[3] {
		case "root":
		case "parent":
			if len(fields) < 5 {
				return nil, errors.Wrapf(tc.ErrParse, "qdisc line %q: parent without handle", line)
			}
			p, err := parseHandleToken(fields[4])
			if err != nil {
				return nil, errors.Wrapf(tc.ErrParse, "qdisc line %q: %s", line, err)
			}
			parent = &p
		default:
			return nil, errors.Wrapf(tc.ErrParse, "qdisc line %q: unexpected attachment %q", line, fields[3])
		}

		objs = append(objs, types.NewGenericQdisc(types.NewQDiscAttrs(handle, parent), kind))
	}
	return objs, nil
}

// parseClasses parses line oriented `tc class show` output, e.g.
//
//	class htb 1:1 root rate 100Kbit ceil 100Kbit burst 1600b cburst 1600b
//	class htb 1:10 parent 1:1 prio 0 rate 200Kbit ceil 400Kbit burst 1600b cburst 1600b
//
// Only htb classes are modeled; classes of other disciplines are skipped.
func parseClasses(out string, log klog.Logger) ([]types.Class, error) {
	var objs []types.Class
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] != "class" || len(fields) < 4 {
			return nil, errors.Wrapf(tc.ErrParse, "unexpected class line %q", line)
		}
		if types.ClassType(fields[1]) != types.ClassHTBType {
			log.V(10).Info("skipping class of unmanaged discipline", "line", line)
			continue
		}
		classID, err := parseHandleToken(fields[2])
		if err != nil {
			return nil, errors.Wrapf(tc.ErrParse, "class line %q: %s", line, err)
		}

		var parent types.Handle
		switch fields[3] {
		case "root":
			// tc prints "root" for classes attached directly to their qdisc
			parent = types.NewHandle(classID.Major, 0)
		case "parent":
			if len(fields) < 5 {
				return nil, errors.Wrapf(tc.ErrParse, "class line %q: parent without handle", line)
			}
			parent, err = parseHandleToken(fields[4])
			if err != nil {
				return nil, errors.Wrapf(tc.ErrParse, "class line %q: %s", line, err)
			}
		default:
			return nil, errors.Wrapf(tc.ErrParse, "class line %q: unexpected attachment %q", line, fields[3])
		}

		var rate, ceil *types.Rate
		for i := 4; i < len(fields)-1; i++ {
			var err error
			switch fields[i] {
			case "rate":
				rate, err = types.ParseRate(fields[i+1])
			case "ceil":
				ceil, err = types.ParseRate(fields[i+1])
			}
			if err != nil {
				return nil, errors.Wrapf(tc.ErrParse, "class line %q: %s", line, err)
			}
		}

		builder := types.NewHTBClassBuilder().WithParent(parent).WithClassID(classID)
		if rate != nil {
			builder.WithRate(rate)
		}
		if ceil != nil {
			builder.WithCeil(ceil)
		}
		objs = append(objs, builder.Build())
	}
	return objs, nil
}

// filterRecord accumulates the attributes of one filter as it is assembled
// from consecutive output lines sharing the same preference.
type filterRecord struct {
	attrs   types.FilterAttrs
	flowID  *types.Handle
	dstPort *uint16
}

// parseFilters parses line oriented `tc filter show` output. u32 filters span
// several lines sharing one preference value:
//
//	filter parent 1: protocol ip pref 5 u32 chain 0
//	filter parent 1: protocol ip pref 5 u32 chain 0 fh 800: ht divisor 1
//	filter parent 1: protocol ip pref 5 u32 chain 0 fh 800::800 order 2048 key ht 800 bkt 0 flowid 1:1
//	  match 00001f90/0000ffff at 20
//
// while cgroup filters occupy a single line:
//
//	filter parent 1: protocol ip pref 8 cgroup chain 0 handle 0x8
//
// tc omits the per line "parent" token when the listing was restricted to a
// parent; defaultParent fills it in. Filters of unmanaged kinds are skipped.
func parseFilters(out string, defaultParent types.Handle, log klog.Logger) ([]types.Filter, error) {
	var order []string
	records := map[string]*filterRecord{}
	var current *filterRecord

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "filter":
			rec, err := parseFilterHeader(fields, defaultParent)
			if err != nil {
				return nil, errors.Wrapf(tc.ErrParse, "filter line %q: %s", line, err)
			}
			key := fmt.Sprintf("%s/%s/%d/%s", rec.attrs.Protocol, rec.attrs.Kind, rec.attrs.Priority, rec.attrs.Parent)
			existing, ok := records[key]
			if !ok {
				records[key] = rec
				order = append(order, key)
				existing = rec
			} else {
				if existing.flowID == nil {
					existing.flowID = rec.flowID
				}
				if existing.attrs.Handle == nil {
					existing.attrs.Handle = rec.attrs.Handle
				}
			}
			current = existing
		case "match":
			if current == nil || current.attrs.Kind != types.FilterKindU32 {
				continue
			}
			port, ok, err := parseU32PortMatch(fields)
			if err != nil {
				return nil, errors.Wrapf(tc.ErrParse, "match line %q: %s", line, err)
			}
			if ok {
				current.dstPort = &port
			}
		default:
			// stats and other continuation lines carry nothing we track
			continue
		}
	}

	var objs []types.Filter
	for _, key := range order {
		rec := records[key]
		switch rec.attrs.Kind {
		case types.FilterKindU32:
			if rec.flowID == nil {
				// header only group, no filter instance behind it
				continue
			}
			builder := types.NewU32FilterBuilder().
				WithProtocol(rec.attrs.Protocol).
				WithParent(rec.attrs.Parent).
				WithPriority(rec.attrs.Priority).
				WithFlowID(*rec.flowID)
			if rec.dstPort != nil {
				builder.WithDstPort(*rec.dstPort)
			}
			objs = append(objs, builder.Build())
		case types.FilterKindCgroup:
			builder := types.NewCgroupFilterBuilder().
				WithProtocol(rec.attrs.Protocol).
				WithParent(rec.attrs.Parent).
				WithPriority(rec.attrs.Priority)
			if rec.attrs.Handle != nil {
				builder.WithHandle(*rec.attrs.Handle)
			}
			objs = append(objs, builder.Build())
		default:
			log.V(10).Info("skipping filter of unmanaged kind", "kind", rec.attrs.Kind)
		}
	}
	return objs, nil
}

// parseFilterHeader parses a single "filter ..." line into a filterRecord.
// The generic attributes (parent, protocol, pref) precede the kind token;
// everything after it is kind specific and scanned for the tokens we track.
func parseFilterHeader(fields []string, defaultParent types.Handle) (*filterRecord, error) {
	rec := &filterRecord{
		attrs: types.FilterAttrs{
			Parent:   defaultParent,
			Protocol: types.FilterProtocolAll,
		},
	}

	i := 1
	for i+1 < len(fields) && rec.attrs.Kind == "" {
		switch fields[i] {
		case "parent":
			h, err := parseHandleToken(fields[i+1])
			if err != nil {
				return nil, err
			}
			rec.attrs.Parent = h
			i += 2
		case "protocol":
			rec.attrs.Protocol = types.FilterProtocol(fields[i+1])
			i += 2
		case "pref":
			p, err := strconv.ParseUint(fields[i+1], 10, 16)
			if err != nil {
				return nil, err
			}
			rec.attrs.Priority = uint16(p)
			i += 2
			if i < len(fields) {
				rec.attrs.Kind = types.FilterKind(fields[i])
				i++
			}
		default:
			return nil, errors.Errorf("unexpected token %q", fields[i])
		}
	}
	if rec.attrs.Kind == "" {
		return nil, errors.New("missing filter kind")
	}

	for ; i < len(fields); i++ {
		switch fields[i] {
		case "handle":
			if i+1 < len(fields) {
				h, err := parseHandleToken(fields[i+1])
				if err != nil {
					return nil, err
				}
				rec.attrs.Handle = &h
				i++
			}
		case "flowid", "*flowid":
			if i+1 < len(fields) {
				h, err := parseHandleToken(fields[i+1])
				if err != nil {
					return nil, err
				}
				rec.flowID = &h
				i++
			}
		}
	}
	return rec, nil
}

// parseU32PortMatch extracts a destination port from a u32 match line such as
//
//	match 00001f90/0000ffff at 20
//
// A dport selector lives at offset 20 with the low 16 bits masked; any other
// selector reports ok=false.
func parseU32PortMatch(fields []string) (uint16, bool, error) {
	if len(fields) < 4 || fields[2] != "at" {
		return 0, false, errors.New("malformed match")
	}
	if fields[3] != "20" {
		return 0, false, nil
	}
	valMask := strings.Split(fields[1], "/")
	if len(valMask) != 2 {
		return 0, false, errors.New("malformed match selector")
	}
	val, err := strconv.ParseUint(valMask[0], 16, 32)
	if err != nil {
		return 0, false, err
	}
	mask, err := strconv.ParseUint(valMask[1], 16, 32)
	if err != nil {
		return 0, false, err
	}
	if mask != 0x0000ffff {
		// not a dport selector (sport occupies the high 16 bits)
		return 0, false, nil
	}
	return uint16(val & 0xffff), true, nil
}
