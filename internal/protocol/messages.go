package protocol

import "time"

// GenerateRequest asks for one podcast to be synthesized from a dialogue
// transcript. A nil LengthMinutes means the configured default; an explicit
// zero is rejected.
type GenerateRequest struct {
	RequestID     string `json:"request_id,omitempty"`
	Title         string `json:"title"`
	Dialogue      string `json:"dialogue"`
	LengthMinutes *int   `json:"podcast_length,omitempty"`
}

// GenerateResult is the summary record returned after a successful
// generation.
type GenerateResult struct {
	RequestID         string    `json:"request_id"`
	Title             string    `json:"title"`
	TargetDurationMin int       `json:"target_duration_min"`
	ActualDurationMin float64   `json:"actual_duration_min"`
	WordCount         int       `json:"word_count"`
	SegmentsProcessed int       `json:"segments_processed"`
	Speakers          string    `json:"speakers"`
	TTSModelUsed      string    `json:"tts_model_used"`
	GPTModelUsed      string    `json:"gpt_model_used"`
	AudioPath         string    `json:"audio_path"`
	FileSizeMB        float64   `json:"file_size_mb"`
	CreatedAt         time.Time `json:"created_at"`
	Success           bool      `json:"success"`
}

// ErrorInfo is the structured failure returned for any aborted request.
type ErrorInfo struct {
	RequestID string    `json:"request_id,omitempty"`
	Success   bool      `json:"success"`
	Kind      string    `json:"error_type"`
	Message   string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// VoiceInfo describes one available synthesis voice.
type VoiceInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// VoicesResponse lists the supported voices.
type VoicesResponse struct {
	Voices []VoiceInfo `json:"voices"`
}

const (
	SubjectGenerate = "podcast.generate"
	SubjectVoices   = "podcast.voices"
)
