package remote

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/ekamanam/studysync/internal/common"
)

// Operation names, as reported in OpError.Op and accepted by the
// MemoryStore fault injection helpers.
const (
	OpCreateFolder = "createFolder"
	OpFindFolder   = "findFolder"
	OpUploadFile   = "uploadFile"
	OpReplaceFile  = "replaceFile"
	OpDownloadFile = "downloadFile"
	OpListFiles    = "listFiles"
	OpDeleteFile   = "deleteFile"
)

type memNode struct {
	name     string
	parent   Handle
	mimeType string
	folder   bool
	data     []byte
	seq      int
}

// MemoryStore is an in-process Store. Like a drive-style API it hands out
// opaque handles and allows several folders with the same name under one
// parent. It counts calls per operation and can be told to fail.
type MemoryStore struct {
	mu     sync.Mutex
	nodes  map[Handle]*memNode
	seq    int
	calls  map[string]int
	next   map[string][]error
	always map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:  make(map[Handle]*memNode),
		calls:  make(map[string]int),
		next:   make(map[string][]error),
		always: make(map[string]error),
	}
}

// FailNext makes the next call of op fail with err. Calls queue up.
func (m *MemoryStore) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next[op] = append(m.next[op], err)
}

// FailAlways makes every call of op fail with err until ClearFaults.
func (m *MemoryStore) FailAlways(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.always[op] = err
}

func (m *MemoryStore) ClearFaults() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = make(map[string][]error)
	m.always = make(map[string]error)
}

// Calls returns how many times op was invoked, failed calls included.
func (m *MemoryStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// FolderCount returns the number of folders called name under parent.
func (m *MemoryStore) FolderCount(name string, parent Handle) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, node := range m.nodes {
		if node.folder && node.name == name && node.parent == parent {
			n++
		}
	}
	return n
}

// Exists reports whether h refers to a live file or folder.
func (m *MemoryStore) Exists(h Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.nodes[h]
	return ok
}

// FileCount returns the number of files in parent.
func (m *MemoryStore) FileCount(parent Handle) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, node := range m.nodes {
		if !node.folder && node.parent == parent {
			n++
		}
	}
	return n
}

// begin records a call and returns the injected fault for it, if any.
func (m *MemoryStore) begin(op, key string) error {
	m.calls[op]++
	if q := m.next[op]; len(q) > 0 {
		err := q[0]
		m.next[op] = q[1:]
		return opError(op, key, err)
	}
	if err := m.always[op]; err != nil {
		return opError(op, key, err)
	}
	return nil
}

func (m *MemoryStore) add(n *memNode) Handle {
	m.seq++
	n.seq = m.seq
	h := fmt.Sprintf("mem-%06d", m.seq)
	m.nodes[h] = n
	return h
}

func (m *MemoryStore) checkParent(op string, parent Handle) error {
	if parent == "" {
		return nil
	}
	if n, ok := m.nodes[parent]; !ok || !n.folder {
		return opError(op, parent, common.ErrNotFound)
	}
	return nil
}

func (m *MemoryStore) CreateFolder(ctx context.Context, name string, parent Handle) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpCreateFolder, name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", opError(OpCreateFolder, name, err)
	}
	if err := validName(name); err != nil {
		return "", opError(OpCreateFolder, name, err)
	}
	if err := m.checkParent(OpCreateFolder, parent); err != nil {
		return "", err
	}
	return m.add(&memNode{name: name, parent: parent, folder: true}), nil
}

// FindFolder returns the oldest matching folder.
func (m *MemoryStore) FindFolder(ctx context.Context, name string, parent Handle) (Handle, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpFindFolder, name); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, opError(OpFindFolder, name, err)
	}

	var (
		best    Handle
		bestSeq int
	)
	for h, n := range m.nodes {
		if n.folder && n.name == name && n.parent == parent && (best == "" || n.seq < bestSeq) {
			best, bestSeq = h, n.seq
		}
	}
	return best, best != "", nil
}

func (m *MemoryStore) UploadFile(ctx context.Context, data []byte, parent Handle, name, mimeType string) (UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpUploadFile, name); err != nil {
		return UploadResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return UploadResult{}, opError(OpUploadFile, name, err)
	}
	if err := validName(name); err != nil {
		return UploadResult{}, opError(OpUploadFile, name, err)
	}
	if err := m.checkParent(OpUploadFile, parent); err != nil {
		return UploadResult{}, err
	}
	h := m.add(&memNode{name: name, parent: parent, mimeType: mimeType, data: append([]byte(nil), data...)})
	return UploadResult{Handle: h, Size: int64(len(data))}, nil
}

func (m *MemoryStore) ReplaceFile(ctx context.Context, h Handle, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpReplaceFile, h); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return opError(OpReplaceFile, h, err)
	}
	n, ok := m.nodes[h]
	if !ok || n.folder {
		return opError(OpReplaceFile, h, common.ErrNotFound)
	}
	n.data = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) DownloadFile(ctx context.Context, h Handle) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpDownloadFile, h); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, opError(OpDownloadFile, h, err)
	}
	n, ok := m.nodes[h]
	if !ok || n.folder {
		return nil, opError(OpDownloadFile, h, common.ErrNotFound)
	}
	return append([]byte(nil), n.data...), nil
}

// ListFilesByNamePattern returns matches in creation order.
func (m *MemoryStore) ListFilesByNamePattern(ctx context.Context, pattern string, parent Handle) ([]Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpListFiles, pattern); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, opError(OpListFiles, pattern, err)
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, opError(OpListFiles, pattern, fmt.Errorf("%w: %v", common.ErrInvalidArgument, err))
	}

	var handles []Handle
	for h, n := range m.nodes {
		if n.folder || n.parent != parent {
			continue
		}
		if ok, _ := path.Match(pattern, n.name); ok {
			handles = append(handles, h)
		}
	}
	sort.Slice(handles, func(i, j int) bool {
		return m.nodes[handles[i]].seq < m.nodes[handles[j]].seq
	})
	return handles, nil
}

func (m *MemoryStore) DeleteFile(ctx context.Context, h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpDeleteFile, h); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return opError(OpDeleteFile, h, err)
	}
	n, ok := m.nodes[h]
	if !ok || n.folder {
		return opError(OpDeleteFile, h, common.ErrNotFound)
	}
	delete(m.nodes, h)
	return nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*S3Store)(nil)
