package services

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"chatrelay-backend/internal/blob"
	"chatrelay-backend/internal/integrations"
	"chatrelay-backend/internal/models"
)

type sentText struct {
	Address string
	Text    string
	Opts    integrations.SendOptions
}

type sentAttachment struct {
	Address    string
	Attachment models.Attachment
	Opts       integrations.SendOptions
}

type fakePlatform struct {
	mu          sync.Mutex
	texts       []sentText
	attachments []sentAttachment
	deletes     []string
	fetched     []string
	sendErr     error
	deleteErr   error
	fetchErr    error
	files       map[string][]byte
	nextID      int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{files: map[string][]byte{}, nextID: 1000}
}

func (f *fakePlatform) Name() string { return "fake" }

func (f *fakePlatform) SendText(_ context.Context, address, text string, opts integrations.SendOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, sentText{address, text, opts})
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextID++
	return strconv.Itoa(f.nextID), nil
}

func (f *fakePlatform) SendAttachment(_ context.Context, address string, att models.Attachment, opts integrations.SendOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachments = append(f.attachments, sentAttachment{address, att, opts})
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextID++
	return strconv.Itoa(f.nextID), nil
}

func (f *fakePlatform) DeleteMessage(_ context.Context, address, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, address+"/"+externalID)
	return f.deleteErr
}

func (f *fakePlatform) FetchFile(_ context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, ref)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	data, ok := f.files[ref]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

func (f *fakePlatform) TestConnection(context.Context) (*integrations.ConnectionResult, error) {
	return &integrations.ConnectionResult{Success: true}, nil
}

type uploadCall struct {
	Data []byte
	Kind blob.Kind
	Opts blob.UploadOptions
}

type fakeBlobs struct {
	mu    sync.Mutex
	calls []uploadCall
	err   error
}

func (f *fakeBlobs) Upload(_ context.Context, data []byte, kind blob.Kind, opts blob.UploadOptions) (*blob.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, uploadCall{data, kind, opts})
	if f.err != nil {
		return nil, f.err
	}
	return &blob.Result{URL: "https://cdn.example/" + string(kind) + "/" + strconv.Itoa(len(f.calls)), Bytes: int64(len(data))}, nil
}

type fakeLive struct {
	mu      sync.Mutex
	created []*models.Message
	deleted []*models.Message
	reads   map[string]int64
}

func newFakeLive() *fakeLive { return &fakeLive{reads: map[string]int64{}} }

func (f *fakeLive) BroadcastNewMessage(m *models.Message) {
	f.mu.Lock()
	f.created = append(f.created, m)
	f.mu.Unlock()
}

func (f *fakeLive) BroadcastMessageDeleted(m *models.Message) {
	f.mu.Lock()
	f.deleted = append(f.deleted, m)
	f.mu.Unlock()
}

func (f *fakeLive) BroadcastMessagesRead(participantID string, count int64) {
	f.mu.Lock()
	f.reads[participantID] += count
	f.mu.Unlock()
}
