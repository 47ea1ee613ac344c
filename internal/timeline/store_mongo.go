package timeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

// CollectionName is the MongoDB collection holding one document per case.
const CollectionName = "case_timelines"

// bson keys of the phases, in order.
var phaseField = map[models.Phase]string{
	models.PhaseIntake:       "intake",
	models.PhaseFiled:        "filed",
	models.PhaseTrialPrep:    "trialPrep",
	models.PhaseCourtHearing: "courtHearing",
	models.PhaseOutcome:      "outcome",
}

func statusPath(p models.Phase) string { return "phases." + phaseField[p] + ".status" }

type documentDoc struct {
	RefID        string `bson:"refId"`
	URL          string `bson:"url"`
	OriginalName string `bson:"originalName,omitempty"`
	Size         int64  `bson:"size,omitempty"`
	MimeType     string `bson:"mimeType,omitempty"`
}

type remarksDoc struct {
	JudgeCourtRemarks string `bson:"judgeCourtRemarks"`
	LawyerRemarks     string `bson:"lawyerRemarks"`
	OpponentRemarks   string `bson:"opponentRemarks"`
}

type phaseDataDoc struct {
	Outcome     string        `bson:"outcome,omitempty"`
	Documents   []documentDoc `bson:"documents"`
	Remarks     remarksDoc    `bson:",inline"`
	SubmittedAt time.Time     `bson:"submittedAt"`
	SubmittedBy string        `bson:"submittedBy"`
}

type phaseDoc struct {
	Status string        `bson:"status"`
	Data   *phaseDataDoc `bson:"data,omitempty"`
}

type subPhaseDoc struct {
	ID          string        `bson:"id"`
	Name        string        `bson:"name"`
	Documents   []documentDoc `bson:"documents"`
	Remarks     remarksDoc    `bson:",inline"`
	SubmittedAt time.Time     `bson:"submittedAt"`
	SubmittedBy string        `bson:"submittedBy"`
}

type courtHearingDoc struct {
	Status    string        `bson:"status"`
	SubPhases []subPhaseDoc `bson:"subPhases"`
}

type phasesDoc struct {
	Intake       phaseDoc        `bson:"intake"`
	Filed        phaseDoc        `bson:"filed"`
	TrialPrep    phaseDoc        `bson:"trialPrep"`
	CourtHearing courtHearingDoc `bson:"courtHearing"`
	Outcome      phaseDoc        `bson:"outcome"`
}

type timelineDoc struct {
	ID        string    `bson:"_id"`
	CaseID    string    `bson:"caseId"`
	Phases    phasesDoc `bson:"phases"`
	Version   int       `bson:"version"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore keeps each timeline as a single document. Transitions are one
// FindOneAndUpdate whose filter carries every precondition, so the database
// applies the compare-and-set.
type MongoStore struct {
	coll *mongo.Collection
	log  *zap.Logger
	now  func() time.Time
}

func NewMongoStore(db *mongo.Database, log *zap.Logger) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName), log: log, now: time.Now}
}

// EnsureIndexes creates the unique caseId index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "caseId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create timeline index: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, caseID uuid.UUID) (*models.Timeline, error) {
	now := s.now().UTC()
	doc := toDoc(models.NewTimeline(caseID))
	doc.ID = uuid.NewString()
	doc.CreatedAt, doc.UpdatedAt = now, now

	_, err := s.coll.UpdateOne(ctx,
		bson.M{"caseId": doc.CaseID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	// Two concurrent upserts can race on the unique index; the loser reads.
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, err
	}
	return s.Get(ctx, caseID)
}

func (s *MongoStore) Get(ctx context.Context, caseID uuid.UUID) (*models.Timeline, error) {
	var doc timelineDoc
	err := s.coll.FindOne(ctx, bson.M{"caseId": caseID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTimelineNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromDoc(&doc)
}

func (s *MongoStore) CompletePhase(ctx context.Context, caseID uuid.UUID, p models.Phase, data *models.PhaseData) (*models.Timeline, error) {
	if !p.Valid() {
		return nil, ErrInvalidPhaseKey
	}
	filter := bson.M{
		"caseId":      caseID.String(),
		statusPath(p): string(models.PhaseOngoing),
	}
	set := bson.M{
		statusPath(p): string(models.PhaseCompleted),
		"updatedAt":   s.now().UTC(),
	}
	if next, ok := p.Next(); ok {
		filter[statusPath(next)] = string(models.PhasePending)
		set[statusPath(next)] = string(models.PhaseOngoing)
	}
	if p == models.PhaseCourtHearing {
		filter["phases.courtHearing.subPhases.0"] = bson.M{"$exists": true}
	} else if data != nil {
		set["phases."+phaseField[p]+".data"] = toPhaseDataDoc(data)
	}

	t, err := s.findAndUpdate(ctx, filter, bson.M{"$set": set, "$inc": bson.M{"version": 1}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.explain(ctx, caseID, func(t *models.Timeline) error { return complete(t, p, data) }, ErrPhaseNotOngoing)
	}
	return t, err
}

func (s *MongoStore) AppendSubPhase(ctx context.Context, caseID uuid.UUID, sp models.SubPhase) (*models.Timeline, error) {
	filter := bson.M{"caseId": caseID.String()}
	filter[statusPath(models.PhaseCourtHearing)] = string(models.PhaseOngoing)
	update := bson.M{
		"$push": bson.M{"phases.courtHearing.subPhases": toSubPhaseDoc(sp)},
		"$set":  bson.M{"updatedAt": s.now().UTC()},
		"$inc":  bson.M{"version": 1},
	}

	t, err := s.findAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.explain(ctx, caseID, func(t *models.Timeline) error { return appendSubPhase(t, &sp) }, ErrCourtHearingNotOngoing)
	}
	return t, err
}

func (s *MongoStore) findAndUpdate(ctx context.Context, filter, update bson.M) (*models.Timeline, error) {
	var doc timelineDoc
	err := s.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return fromDoc(&doc)
}

// explain turns an unmatched conditional update into the precise error by
// replaying the transition on the current state. If the replay succeeds the
// state moved in between and fallback is returned.
func (s *MongoStore) explain(ctx context.Context, caseID uuid.UUID, replay func(*models.Timeline) error, fallback error) error {
	t, err := s.Get(ctx, caseID)
	if err != nil {
		return err
	}
	if err := replay(t); err != nil {
		return err
	}
	s.log.Debug("timeline changed between conditional update and re-read",
		zap.String("case_id", caseID.String()),
		zap.Int("version", t.Version),
	)
	return fallback
}

/* ============================== Mapping ================================= */

func toDoc(t *models.Timeline) timelineDoc {
	doc := timelineDoc{
		ID:     t.ID.String(),
		CaseID: t.CaseID.String(),
		Phases: phasesDoc{
			Intake:    toPhaseDoc(t.Intake),
			Filed:     toPhaseDoc(t.Filed),
			TrialPrep: toPhaseDoc(t.TrialPrep),
			CourtHearing: courtHearingDoc{
				Status:    string(t.CourtHearing.Status),
				SubPhases: make([]subPhaseDoc, 0, len(t.SubPhases)),
			},
			Outcome: toPhaseDoc(t.Outcome),
		},
		Version:   t.Version,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	for _, sp := range t.SubPhases {
		doc.Phases.CourtHearing.SubPhases = append(doc.Phases.CourtHearing.SubPhases, toSubPhaseDoc(sp))
	}
	return doc
}

func toPhaseDoc(r models.PhaseRecord) phaseDoc {
	d := phaseDoc{Status: string(r.Status)}
	if r.Data != nil {
		d.Data = toPhaseDataDoc(r.Data)
	}
	return d
}

func toPhaseDataDoc(d *models.PhaseData) *phaseDataDoc {
	return &phaseDataDoc{
		Outcome:     string(d.Outcome),
		Documents:   toDocumentDocs(d.Documents),
		Remarks:     remarksDoc(d.Remarks),
		SubmittedAt: d.SubmittedAt,
		SubmittedBy: d.SubmittedBy.String(),
	}
}

func toSubPhaseDoc(sp models.SubPhase) subPhaseDoc {
	id := sp.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return subPhaseDoc{
		ID:          id.String(),
		Name:        sp.Name,
		Documents:   toDocumentDocs(sp.Documents),
		Remarks:     remarksDoc(sp.Remarks),
		SubmittedAt: sp.SubmittedAt,
		SubmittedBy: sp.SubmittedBy.String(),
	}
}

func toDocumentDocs(in []models.Document) []documentDoc {
	out := make([]documentDoc, 0, len(in))
	for _, d := range in {
		out = append(out, documentDoc(d))
	}
	return out
}

func fromDoc(doc *timelineDoc) (*models.Timeline, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("timeline id: %w", err)
	}
	caseID, err := uuid.Parse(doc.CaseID)
	if err != nil {
		return nil, fmt.Errorf("timeline case id: %w", err)
	}
	t := &models.Timeline{
		ID:        id,
		CaseID:    caseID,
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		SubPhases: make([]models.SubPhase, 0, len(doc.Phases.CourtHearing.SubPhases)),
	}
	if t.Intake, err = fromPhaseDoc(doc.Phases.Intake); err != nil {
		return nil, err
	}
	if t.Filed, err = fromPhaseDoc(doc.Phases.Filed); err != nil {
		return nil, err
	}
	if t.TrialPrep, err = fromPhaseDoc(doc.Phases.TrialPrep); err != nil {
		return nil, err
	}
	if t.Outcome, err = fromPhaseDoc(doc.Phases.Outcome); err != nil {
		return nil, err
	}

	t.CourtHearing = models.CourtHearingRecord{
		Status:        models.PhaseStatus(doc.Phases.CourtHearing.Status),
		SubPhaseCount: len(doc.Phases.CourtHearing.SubPhases),
	}
	// Array order is append order; seq is derived from it.
	for i, sd := range doc.Phases.CourtHearing.SubPhases {
		spID, err := uuid.Parse(sd.ID)
		if err != nil {
			return nil, fmt.Errorf("sub-phase %d id: %w", i+1, err)
		}
		by, err := uuid.Parse(sd.SubmittedBy)
		if err != nil {
			return nil, fmt.Errorf("sub-phase %d submitted by: %w", i+1, err)
		}
		t.SubPhases = append(t.SubPhases, models.SubPhase{
			ID:          spID,
			TimelineID:  id,
			Seq:         i + 1,
			Name:        sd.Name,
			Documents:   fromDocumentDocs(sd.Documents),
			Remarks:     models.Remarks(sd.Remarks),
			SubmittedAt: sd.SubmittedAt,
			SubmittedBy: by,
		})
	}
	return t, nil
}

func fromPhaseDoc(d phaseDoc) (models.PhaseRecord, error) {
	r := models.PhaseRecord{Status: models.PhaseStatus(d.Status)}
	if d.Data == nil {
		return r, nil
	}
	by, err := uuid.Parse(d.Data.SubmittedBy)
	if err != nil {
		return r, fmt.Errorf("phase submitted by: %w", err)
	}
	r.Data = &models.PhaseData{
		Outcome:     models.Outcome(d.Data.Outcome),
		Documents:   fromDocumentDocs(d.Data.Documents),
		Remarks:     models.Remarks(d.Data.Remarks),
		SubmittedAt: d.Data.SubmittedAt,
		SubmittedBy: by,
	}
	return r, nil
}

func fromDocumentDocs(in []documentDoc) []models.Document {
	out := make([]models.Document, 0, len(in))
	for _, d := range in {
		out = append(out, models.Document(d))
	}
	return out
}
