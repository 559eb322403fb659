// Package editor holds the interactive recoloring session.
//
// A Session moves between three states:
//
//	Empty ──LoadImage──▶ Loaded ──ApplyColor──▶ Previewed
//	  ▲                    ▲  ◀──────Reset───────  │  ⟲ ApplyColor, UpdateSettings, SetMode
//	  └──────Clear─────────┴───────────────────────┘
//
// Every render starts from the downscaled original, never from the previous
// preview, so repeated color or settings changes do not accumulate blend drift.
//
// # Loading
//
// LoadImage does its decode and wall detection without holding the session
// lock. When a newer LoadImage (or Clear) starts before an older one
// finishes, the older context is canceled and its result is discarded with
// ErrSuperseded, whatever order the decodes complete in.
//
// # Failures
//
// A failed operation leaves the previous state untouched: a bad upload keeps
// the current image and preview, an invalid color keeps the current preview.
//
// Session is safe for concurrent use; operations other than the decode step
// of LoadImage are serialized.
package editor
