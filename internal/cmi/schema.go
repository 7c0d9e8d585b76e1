package cmi

import (
	"math"
	"strconv"
	"strings"
)

// Access is the element access mode enforced by the data model.
type Access int

const (
	// ReadWrite elements accept both GetValue and SetValue.
	ReadWrite Access = iota

	// ReadOnly elements reject SetValue.
	ReadOnly

	// WriteOnly elements reject GetValue.
	WriteOnly
)

// Element describes one schema entry, keyed by template path
// (collection indices normalized to "n", e.g. "cmi.interactions.n.id").
type Element struct {
	Type       ValueType
	Access     Access
	Default    string
	HasDefault bool
	Vocab      []string
	Min, Max   float64
	Ranged     bool
	MaxLen     int
	WriteOnce  bool
}

// Collection describes an ordered collection root.
//
// Key names the sub-element that must be the first write for a new entry
// ("" means any sub-element may create the entry). Children backs the
// _children pseudo-element.
type Collection struct {
	Key      string
	Children []string
}

// collections maps collection-root template paths to their descriptors.
var collections = map[string]*Collection{
	"cmi.comments_from_learner": {
		Children: []string{"comment", "location", "timestamp"},
	},
	"cmi.comments_from_lms": {
		Children: []string{"comment", "location", "timestamp"},
	},
	"cmi.interactions": {
		Key: "id",
		Children: []string{
			"id", "type", "objectives", "timestamp", "correct_responses",
			"weighting", "learner_response", "result", "latency", "description",
		},
	},
	"cmi.objectives": {
		Key: "id",
		Children: []string{
			"id", "score", "success_status", "completion_status",
			"progress_measure", "description",
		},
	},
	"cmi.interactions.n.objectives": {
		Key:      "id",
		Children: []string{"id"},
	},
	"cmi.interactions.n.correct_responses": {
		Key:      "pattern",
		Children: []string{"pattern"},
	},
}

// containers maps non-collection container templates to their _children list.
var containers = map[string][]string{
	"cmi.score":              {"scaled", "raw", "min", "max"},
	"cmi.objectives.n.score": {"scaled", "raw", "min", "max"},
	"cmi.learner_preference": {"audio_level", "language", "delivery_speed", "audio_captioning"},
}

// unimplemented lists recognized optional namespaces this runtime does not
// support. Reads and writes under them report the unimplemented kind.
var unimplemented = map[string]bool{
	"adl.data": true,
}

var (
	completionVocab = []string{"completed", "incomplete", "not attempted", "unknown"}
	successVocab    = []string{"passed", "failed", "unknown"}
	exitVocab       = []string{"time-out", "suspend", "logout", "normal", ""}
	entryVocab      = []string{"ab-initio", "resume", ""}
	creditVocab     = []string{"credit", "no-credit"}
	modeVocab       = []string{"browse", "normal", "review"}
	tlaVocab        = []string{"exit,message", "exit,no message", "continue,message", "continue,no message"}
	interactionType = []string{
		"true-false", "choice", "fill-in", "long-fill-in", "likert",
		"matching", "performance", "sequencing", "numeric", "other",
	}
)

// NavRequestVocab is the fixed part of the adl.nav.request vocabulary.
// Choice requests additionally use the "{target=<id>}choice" form, validated
// separately in navRequestValid.
var NavRequestVocab = []string{
	"continue", "previous", "exit", "exitAll", "abandon", "abandonAll",
	"suspendAll", "_none_",
}

// elements is the full schema table, keyed by template path.
var elements = map[string]*Element{
	"cmi._version": {Type: TypeString, Access: ReadOnly, Default: "1.0", HasDefault: true},

	"cmi.completion_status": {
		Type: TypeVocab, Access: ReadWrite, Vocab: completionVocab,
		Default: "unknown", HasDefault: true,
	},
	"cmi.completion_threshold": {
		Type: TypeReal, Access: ReadOnly, Ranged: true, Min: 0, Max: 1,
	},
	"cmi.credit": {
		Type: TypeVocab, Access: ReadOnly, Vocab: creditVocab,
		Default: "credit", HasDefault: true,
	},
	"cmi.entry": {
		Type: TypeVocab, Access: ReadOnly, Vocab: entryVocab,
		Default: "ab-initio", HasDefault: true,
	},
	"cmi.exit": {Type: TypeVocab, Access: WriteOnly, Vocab: exitVocab},

	"cmi.launch_data": {Type: TypeString, Access: ReadOnly, MaxLen: 4000, Default: "", HasDefault: true},
	"cmi.learner_id":  {Type: TypeString, Access: ReadOnly, MaxLen: 4000},
	"cmi.learner_name": {
		Type: TypeLocalizedString, Access: ReadOnly, MaxLen: 250,
	},

	"cmi.learner_preference.audio_level": {
		Type: TypeReal, Access: ReadWrite, Ranged: true, Min: 0, Max: math.MaxFloat64,
		Default: "1", HasDefault: true,
	},
	"cmi.learner_preference.language": {
		Type: TypeString, Access: ReadWrite, MaxLen: 250, Default: "", HasDefault: true,
	},
	"cmi.learner_preference.delivery_speed": {
		Type: TypeReal, Access: ReadWrite, Ranged: true, Min: 0, Max: math.MaxFloat64,
		Default: "1", HasDefault: true,
	},
	"cmi.learner_preference.audio_captioning": {
		Type: TypeInteger, Access: ReadWrite, Ranged: true, Min: -1, Max: 1,
		Default: "0", HasDefault: true,
	},

	"cmi.location":         {Type: TypeString, Access: ReadWrite, MaxLen: 1000},
	"cmi.max_time_allowed": {Type: TypeTimeInterval, Access: ReadOnly},
	"cmi.mode": {
		Type: TypeVocab, Access: ReadOnly, Vocab: modeVocab,
		Default: "normal", HasDefault: true,
	},
	"cmi.progress_measure": {
		Type: TypeReal, Access: ReadWrite, Ranged: true, Min: 0, Max: 1,
	},
	"cmi.scaled_passing_score": {
		Type: TypeReal, Access: ReadOnly, Ranged: true, Min: -1, Max: 1,
	},

	"cmi.score.scaled": {
		Type: TypeReal, Access: ReadWrite, Ranged: true, Min: -1, Max: 1,
	},
	"cmi.score.raw": {Type: TypeReal, Access: ReadWrite},
	"cmi.score.min": {Type: TypeReal, Access: ReadWrite},
	"cmi.score.max": {Type: TypeReal, Access: ReadWrite},

	"cmi.session_time": {Type: TypeTimeInterval, Access: WriteOnly},
	"cmi.success_status": {
		Type: TypeVocab, Access: ReadWrite, Vocab: successVocab,
		Default: "unknown", HasDefault: true,
	},
	"cmi.suspend_data": {Type: TypeString, Access: ReadWrite, MaxLen: 64000},
	"cmi.time_limit_action": {
		Type: TypeVocab, Access: ReadOnly, Vocab: tlaVocab,
		Default: "continue,no message", HasDefault: true,
	},
	"cmi.total_time": {
		Type: TypeTimeInterval, Access: ReadOnly, Default: "PT0S", HasDefault: true,
	},

	"cmi.comments_from_learner.n.comment": {
		Type: TypeLocalizedString, Access: ReadWrite, MaxLen: 4000,
	},
	"cmi.comments_from_learner.n.location": {
		Type: TypeString, Access: ReadWrite, MaxLen: 250,
	},
	"cmi.comments_from_learner.n.timestamp": {Type: TypeTime, Access: ReadWrite},

	"cmi.comments_from_lms.n.comment": {
		Type: TypeLocalizedString, Access: ReadOnly, MaxLen: 4000,
	},
	"cmi.comments_from_lms.n.location": {
		Type: TypeString, Access: ReadOnly, MaxLen: 250,
	},
	"cmi.comments_from_lms.n.timestamp": {Type: TypeTime, Access: ReadOnly},

	"cmi.interactions.n.id": {Type: TypeString, Access: ReadWrite, MaxLen: 4000},
	"cmi.interactions.n.type": {
		Type: TypeVocab, Access: ReadWrite, Vocab: interactionType,
	},
	"cmi.interactions.n.objectives.n.id": {
		Type: TypeString, Access: ReadWrite, MaxLen: 4000, WriteOnce: true,
	},
	"cmi.interactions.n.timestamp": {Type: TypeTime, Access: ReadWrite},
	"cmi.interactions.n.correct_responses.n.pattern": {
		Type: TypeString, Access: ReadWrite, MaxLen: 500,
	},
	"cmi.interactions.n.weighting": {Type: TypeReal, Access: ReadWrite},
	"cmi.interactions.n.learner_response": {
		Type: TypeString, Access: ReadWrite, MaxLen: 4000,
	},
	"cmi.interactions.n.result":  {Type: TypeResult, Access: ReadWrite},
	"cmi.interactions.n.latency": {Type: TypeTimeInterval, Access: ReadWrite},
	"cmi.interactions.n.description": {
		Type: TypeLocalizedString, Access: ReadWrite, MaxLen: 250,
	},

	"cmi.objectives.n.id": {
		Type: TypeString, Access: ReadWrite, MaxLen: 4000, WriteOnce: true,
	},
	"cmi.objectives.n.score.scaled": {
		Type: TypeReal, Access: ReadWrite, Ranged: true, Min: -1, Max: 1,
	},
	"cmi.objectives.n.score.raw": {Type: TypeReal, Access: ReadWrite},
	"cmi.objectives.n.score.min": {Type: TypeReal, Access: ReadWrite},
	"cmi.objectives.n.score.max": {Type: TypeReal, Access: ReadWrite},
	"cmi.objectives.n.success_status": {
		Type: TypeVocab, Access: ReadWrite, Vocab: successVocab,
		Default: "unknown", HasDefault: true,
	},
	"cmi.objectives.n.completion_status": {
		Type: TypeVocab, Access: ReadWrite, Vocab: completionVocab,
		Default: "unknown", HasDefault: true,
	},
	"cmi.objectives.n.progress_measure": {
		Type: TypeReal, Access: ReadWrite, Ranged: true, Min: 0, Max: 1,
	},
	"cmi.objectives.n.description": {
		Type: TypeLocalizedString, Access: ReadWrite, MaxLen: 250,
	},

	"adl.nav.request": {
		Type: TypeString, Access: ReadWrite, Default: "_none_", HasDefault: true,
	},
	"adl.nav.request_valid.continue": {
		Type: TypeString, Access: ReadOnly, Default: "unknown", HasDefault: true,
	},
	"adl.nav.request_valid.previous": {
		Type: TypeString, Access: ReadOnly, Default: "unknown", HasDefault: true,
	},
}

// collectionRef records one collection segment resolved from a concrete path.
type collectionRef struct {
	template string // collection root template, e.g. "cmi.interactions.n.objectives"
	instance string // concrete root path, e.g. "cmi.interactions.2.objectives"
	index    int
}

// resolved is the outcome of resolving a concrete path against the schema.
type resolved struct {
	template string
	refs     []collectionRef

	// count/children pseudo-element resolution
	countOf    string // instance path whose _count was requested
	childrenOf []string
}

// resolvePath normalizes a concrete element path to its template form and
// extracts every collection index along the way.
//
// Returns KindUndefined for paths that match no schema entry, including
// malformed indices ("cmi.interactions.x.id") and KindUnimplemented for
// recognized-but-unsupported namespaces.
func resolvePath(path string) (*resolved, error) {
	for prefix := range unimplemented {
		if path == prefix || strings.HasPrefix(path, prefix+".") {
			return nil, newError(KindUnimplemented, path, "")
		}
	}

	tokens := strings.Split(path, ".")
	res := &resolved{}
	var tmpl []string
	var concrete []string

	for i, tok := range tokens {
		tmplSoFar := strings.Join(tmpl, ".")
		col, isCollection := collections[tmplSoFar]
		last := i == len(tokens)-1

		if isCollection {
			switch {
			case tok == "_count" && last:
				res.template = tmplSoFar + "._count"
				res.countOf = strings.Join(concrete, ".")
				return res, nil
			case tok == "_children" && last:
				res.template = tmplSoFar + "._children"
				res.childrenOf = col.Children
				return res, nil
			default:
				idx, err := strconv.Atoi(tok)
				if err != nil || idx < 0 || (tok != "0" && strings.HasPrefix(tok, "0")) {
					return nil, newError(KindUndefined, path, "malformed collection index")
				}
				res.refs = append(res.refs, collectionRef{
					template: tmplSoFar,
					instance: strings.Join(concrete, "."),
					index:    idx,
				})
				tmpl = append(tmpl, "n")
				concrete = append(concrete, tok)
				continue
			}
		}

		if children, isContainer := containers[tmplSoFar]; isContainer && tok == "_children" && last {
			res.template = tmplSoFar + "._children"
			res.childrenOf = children
			return res, nil
		}

		tmpl = append(tmpl, tok)
		concrete = append(concrete, tok)
	}

	res.template = strings.Join(tmpl, ".")
	if _, ok := elements[res.template]; !ok {
		return nil, newError(KindUndefined, path, "")
	}
	return res, nil
}

// navRequestValid reports whether a value is a well-formed adl.nav.request.
func navRequestValid(value string) bool {
	for _, tok := range NavRequestVocab {
		if value == tok {
			return true
		}
	}
	// Choice / jump form: {target=<id>}choice
	if strings.HasPrefix(value, "{target=") {
		rest := value[len("{target="):]
		if i := strings.Index(rest, "}"); i > 0 {
			suffix := rest[i+1:]
			return suffix == "choice" || suffix == "jump"
		}
	}
	return false
}
