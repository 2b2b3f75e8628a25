package embed

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// ORTConfig configures the local ONNX Runtime embedder.
type ORTConfig struct {
	LibraryPath   string // onnxruntime shared library; empty uses the platform default
	ModelPath     string // exported sentence-transformer model.onnx
	TokenizerPath string // HuggingFace tokenizer.json
	MaxSeqLen     int
	Dim           int // hidden size of the model, 384 for all-MiniLM-L6-v2
	ModelID       string
}

var ortEnvOnce sync.Once
var ortEnvErr error

// ORT embeds text with a local ONNX Runtime session: tokenize, run the
// transformer, mean-pool over the attention mask and L2 normalize.
type ORT struct {
	mu      sync.Mutex
	cfg     ORTConfig
	tk      *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
}

// NewORT initializes the runtime environment, tokenizer and session.
func NewORT(cfg ORTConfig) (*ORT, error) {
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("onnx embedder: model and tokenizer paths are required")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 256
	}
	if cfg.Dim <= 0 {
		cfg.Dim = 384
	}
	if cfg.ModelID == "" {
		cfg.ModelID = filepath.Base(filepath.Dir(cfg.ModelPath)) + "/" + filepath.Base(cfg.ModelPath)
	}

	ortEnvOnce.Do(func() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		if !ort.IsInitialized() {
			ortEnvErr = ort.InitializeEnvironment()
		}
	})
	if ortEnvErr != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", ortEnvErr)
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", cfg.TokenizerPath, err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"}, nil)
	if err != nil {
		return nil, fmt.Errorf("create onnx session for %s: %w", cfg.ModelPath, err)
	}

	return &ORT{cfg: cfg, tk: tk, session: session}, nil
}

// ModelID returns the identifier used for cache keys.
func (o *ORT) ModelID() string { return o.cfg.ModelID }

// Close releases the session. The process-wide environment stays up.
func (o *ORT) Close() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil {
		err := o.session.Destroy()
		o.session = nil
		return err
	}
	return nil
}

// Embed encodes texts one at a time; the session is not shared across calls.
func (o *ORT) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := o.encode(t)
		if err != nil {
			return nil, fmt.Errorf("encode text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (o *ORT) encode(text string) ([]float32, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil, ErrNotInitialized
	}

	enc, err := o.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	ids, mask, types := truncate(enc.GetIds(), enc.GetAttentionMask(), enc.GetTypeIds(), o.cfg.MaxSeqLen)
	seqLen := int64(len(ids))
	if seqLen == 0 {
		return make([]float32, o.cfg.Dim), nil
	}

	shape := ort.NewShape(1, seqLen)
	idsT, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsT.Destroy()
	maskT, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskT.Destroy()
	typesT, err := ort.NewTensor(shape, types)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer typesT.Destroy()

	hiddenT, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, int64(o.cfg.Dim)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer hiddenT.Destroy()

	if err := o.session.Run([]ort.Value{idsT, maskT, typesT}, []ort.Value{hiddenT}); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	return l2Normalize(meanPool(hiddenT.GetData(), mask, o.cfg.Dim)), nil
}

// truncate converts tokenizer output to int64 and cuts it to maxLen, keeping
// the final special token.
func truncate(ids, mask, types []int, maxLen int) ([]int64, []int64, []int64) {
	n := len(ids)
	if n > maxLen {
		n = maxLen
	}
	outIDs := make([]int64, n)
	outMask := make([]int64, n)
	outTypes := make([]int64, n)
	for i := 0; i < n; i++ {
		outIDs[i] = int64(ids[i])
		if i < len(mask) {
			outMask[i] = int64(mask[i])
		} else {
			outMask[i] = 1
		}
		if i < len(types) {
			outTypes[i] = int64(types[i])
		}
	}
	if len(ids) > n && n > 0 {
		outIDs[n-1] = int64(ids[len(ids)-1])
	}
	return outIDs, outMask, outTypes
}
