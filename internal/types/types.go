package types

// TranscriptSegment is one timestamped piece of A-roll speech. The embedding
// is attached by the orchestration layer before planning and never serialized.
type TranscriptSegment struct {
	StartSec  float64   `json:"start_sec"`
	EndSec    float64   `json:"end_sec"`
	Text      string    `json:"text"`
	Embedding []float64 `json:"-"`
}

// Duration returns the segment length in seconds.
func (s TranscriptSegment) Duration() float64 { return s.EndSec - s.StartSec }

// Transcript is the raw ASR output for one A-roll video.
type Transcript struct {
	Segments []TranscriptSegment `json:"segments"`
}

// BRoll describes one candidate cutaway clip. Metadata is free-form text
// (what the clip shows); the embedding of that text is attached by the caller.
type BRoll struct {
	ID        string    `json:"id"`
	Metadata  string    `json:"metadata"`
	Embedding []float64 `json:"-"`
}

// Insertion is one planned B-roll placement on the A-roll timeline.
type Insertion struct {
	StartSec    float64 `json:"start_sec"`
	DurationSec float64 `json:"duration_sec"`
	BRollID     string  `json:"broll_id"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

// Plan is the full planning result for one A-roll video.
type Plan struct {
	ArollDurationSec   float64             `json:"aroll_duration_sec"`
	TranscriptSegments []TranscriptSegment `json:"transcript_segments"`
	Insertions         []Insertion         `json:"insertions"`
}
