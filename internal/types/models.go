package types

import "time"

// PersonSource records which identity table a Person was read from.
type PersonSource string

const (
	SourceTeamMember PersonSource = "team_member"
	SourceContact    PersonSource = "contact"
)

// Person is a team member or contact, mapped once at the storage boundary.
type Person struct {
	ID           string       `json:"id"`
	ProjectID    string       `json:"project_id"`
	Name         string       `json:"name"`
	Role         string       `json:"role,omitempty"`
	Organization string       `json:"organization,omitempty"`
	Email        string       `json:"email,omitempty"`
	Aliases      []string     `json:"aliases,omitempty"`
	Source       PersonSource `json:"source"`
}

const DocumentKindTranscript = "transcript"

// Document statuses that make a transcript eligible for analysis.
const (
	DocumentStatusProcessed = "processed"
	DocumentStatusCompleted = "completed"
)

type Transcript struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	Title      string     `json:"title,omitempty"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	Content    string     `json:"content,omitempty"`
	FileRef    string     `json:"file_ref,omitempty"`
	FileName   string     `json:"file_name,omitempty"`
	Extraction Extraction `json:"extraction"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Extraction is the structured result produced when the document was ingested.
type Extraction struct {
	Participants []string `json:"participants,omitempty"`
	Summary      string   `json:"summary,omitempty"`
}

// Intervention is one attributed speaking turn. Never persisted.
type Intervention struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	Order     int    `json:"order"`
	Timestamp string `json:"timestamp,omitempty"`
}

type TranscriptInterventions struct {
	DocumentID        string         `json:"document_id"`
	Interventions     []Intervention `json:"interventions"`
	InterventionCount int            `json:"intervention_count"`
	TotalWordCount    int            `json:"total_word_count"`
}

type BehavioralProfile struct {
	ID                      string          `json:"id"`
	ProjectID               string          `json:"project_id"`
	PersonID                string          `json:"person_id"`
	PersonName              string          `json:"person_name"`
	ProfileData             ProfileData     `json:"profile_data"`
	ConfidenceLevel         ConfidenceLevel `json:"confidence_level"`
	CommunicationStyle      string          `json:"communication_style,omitempty"`
	DominantMotivation      string          `json:"dominant_motivation,omitempty"`
	RiskTolerance           string          `json:"risk_tolerance,omitempty"`
	InfluenceScore          int             `json:"influence_score"`
	TotalSpeakingTime       int             `json:"total_speaking_time"`
	TotalInterventions      int             `json:"total_interventions"`
	TotalWords              int             `json:"total_words"`
	AvgWordsPerIntervention float64         `json:"avg_words_per_intervention"`
	TranscriptsAnalyzed     []string        `json:"transcripts_analyzed"`
	EvidenceCount           int             `json:"evidence_count"`
	LastAnalysisAt          time.Time       `json:"last_analysis_at"`
	LastIncrementalAt       *time.Time      `json:"last_incremental_at,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// LastAnalyzed returns the most recent of the full and incremental timestamps.
func (p *BehavioralProfile) LastAnalyzed() time.Time {
	if p.LastIncrementalAt != nil && p.LastIncrementalAt.After(p.LastAnalysisAt) {
		return *p.LastIncrementalAt
	}
	return p.LastAnalysisAt
}

// HasTranscript reports whether id is already folded into the profile.
func (p *BehavioralProfile) HasTranscript(id string) bool {
	for _, t := range p.TranscriptsAnalyzed {
		if t == id {
			return true
		}
	}
	return false
}

type Evidence struct {
	ID                 string    `json:"id"`
	ProfileID          string    `json:"profile_id"`
	ProjectID          string    `json:"project_id"`
	PersonID           string    `json:"person_id"`
	Quote              string    `json:"quote"`
	Trait              string    `json:"trait"`
	Confidence         string    `json:"confidence,omitempty"`
	IsPrimary          bool      `json:"is_primary"`
	SourceTranscriptID string    `json:"source_transcript_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type InfluenceEntry struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Strength  *float64 `json:"strength,omitempty"`
	Mechanism string   `json:"mechanism,omitempty"`
	Evidence  string   `json:"evidence,omitempty"`
}

type Alliance struct {
	Members  []string `json:"members"`
	Basis    string   `json:"basis,omitempty"`
	Evidence string   `json:"evidence,omitempty"`
}

type Tension struct {
	Members  []string `json:"members"`
	Level    string   `json:"level,omitempty"`
	Topic    string   `json:"topic,omitempty"`
	Evidence string   `json:"evidence,omitempty"`
}

type TeamAnalysis struct {
	ID              string           `json:"id"`
	ProjectID       string           `json:"project_id"`
	CohesionScore   float64          `json:"cohesion_score"`
	TensionLevel    string           `json:"tension_level"`
	DominantPattern string           `json:"dominant_communication_pattern,omitempty"`
	InfluenceMap    []InfluenceEntry `json:"influence_map"`
	Alliances       []Alliance       `json:"alliances"`
	Tensions        []Tension        `json:"tensions"`
	Summary         string           `json:"summary,omitempty"`
	Recommendations []string         `json:"recommendations,omitempty"`
	MemberIDs       []string         `json:"member_ids"`
	TranscriptIDs   []string         `json:"transcript_ids"`
	AnalyzedAt      time.Time        `json:"analyzed_at"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type RelationshipType string

const (
	RelInfluences  RelationshipType = "influences"
	RelAlignedWith RelationshipType = "aligned_with"
	RelTensionWith RelationshipType = "tension_with"
)

type Relationship struct {
	ID             string           `json:"id"`
	ProjectID      string           `json:"project_id"`
	FromPersonID   string           `json:"from_person_id"`
	ToPersonID     string           `json:"to_person_id"`
	Type           RelationshipType `json:"relationship_type"`
	Strength       float64          `json:"strength"`
	Evidence       []string         `json:"evidence"`
	EvidenceCount  int              `json:"evidence_count"`
	LastObservedAt time.Time        `json:"last_observed_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

// RelationshipObservation is one sighting of an edge, folded into the stored
// Relationship by an upsert.
type RelationshipObservation struct {
	ProjectID    string
	FromPersonID string
	ToPersonID   string
	Type         RelationshipType
	Strength     float64
	Evidence     []string
	ObservedAt   time.Time
}

type TriggerType string

const (
	TriggerManual      TriggerType = "manual"
	TriggerIncremental TriggerType = "incremental"
	TriggerAutomatic   TriggerType = "automatic"
)

type HistoryKind string

const (
	HistoryProfile HistoryKind = "profile"
	HistoryTeam    HistoryKind = "team"
)

// HistorySnapshot is an append-only audit record.
type HistorySnapshot struct {
	ID                  string      `json:"id"`
	ProjectID           string      `json:"project_id"`
	Kind                HistoryKind `json:"kind"`
	SubjectID           string      `json:"subject_id,omitempty"`
	Snapshot            []byte      `json:"snapshot"`
	Trigger             TriggerType `json:"trigger"`
	TriggerTranscriptID string      `json:"trigger_transcript_id,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
}

type AccessPolicy string

const (
	AccessAllMembers AccessPolicy = "all_members"
	AccessAdminOnly  AccessPolicy = "admin_only"
)

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

type Project struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	OwnerID           string         `json:"owner_id"`
	BehavioralEnabled bool           `json:"behavioral_enabled"`
	AccessPolicy      AccessPolicy   `json:"access_policy"`
	LLMProvider       string         `json:"llm_provider,omitempty"`
	LLMModel          string         `json:"llm_model,omitempty"`
	LLMConfig         map[string]any `json:"llm_config,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}
