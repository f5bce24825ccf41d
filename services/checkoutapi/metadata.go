package checkoutapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MarcGrol/marketplace/lib/myerrors"
)

const (
	// limits imposed by the gateway on session metadata
	MaxMetadataKeys     = 50
	MaxMetadataValueLen = 500

	metadataChunkPrefix = "cart_"
	metadataChunksKey   = "cart_chunks"
	metadataMACKey      = "cart_mac"
	maxChunks           = MaxMetadataKeys - 2
)

// CartCodec embeds a signed copy of the cart in gateway metadata.
type CartCodec struct {
	secret []byte
}

func NewCartCodec(secret string) CartCodec {
	return CartCodec{secret: []byte(secret)}
}

func (cc CartCodec) mac(payload string) string {
	h := hmac.New(sha256.New, cc.secret)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// Encode splits the serialized lines into chunks that respect the metadata limits.
func (cc CartCodec) Encode(lines []CartLine) (map[string]string, error) {
	payload, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("error marshalling cart: %w", err)
	}

	chunks := chunk(string(payload), MaxMetadataValueLen)
	if len(chunks) > maxChunks {
		return nil, myerrors.NewInvalidInputErrorf("cart too large: needs %d metadata entries, at most %d allowed", len(chunks), maxChunks)
	}

	metadata := make(map[string]string, len(chunks)+2)
	for idx, c := range chunks {
		metadata[metadataChunkPrefix+strconv.Itoa(idx)] = c
	}
	metadata[metadataChunksKey] = strconv.Itoa(len(chunks))
	metadata[metadataMACKey] = cc.mac(string(payload))

	return metadata, nil
}

// Decode reassembles the lines and rejects metadata whose mac does not match.
func (cc CartCodec) Decode(metadata map[string]string) ([]CartLine, error) {
	countAsString, found := metadata[metadataChunksKey]
	if !found {
		return nil, myerrors.NewDataErrorf("metadata carries no cart")
	}
	count, err := strconv.Atoi(countAsString)
	if err != nil || count <= 0 || count > maxChunks {
		return nil, myerrors.NewDataErrorf("invalid cart chunk count %q", countAsString)
	}

	var sb strings.Builder
	for idx := 0; idx < count; idx++ {
		c, found := metadata[metadataChunkPrefix+strconv.Itoa(idx)]
		if !found {
			return nil, myerrors.NewDataErrorf("cart chunk %d of %d missing", idx, count)
		}
		sb.WriteString(c)
	}
	payload := sb.String()

	if !hmac.Equal([]byte(cc.mac(payload)), []byte(metadata[metadataMACKey])) {
		return nil, myerrors.NewDataErrorf("cart signature mismatch")
	}

	lines := []CartLine{}
	err = json.Unmarshal([]byte(payload), &lines)
	if err != nil {
		return nil, myerrors.NewDataErrorf("error parsing cart: %s", err)
	}

	return lines, nil
}

func chunk(s string, size int) []string {
	runes := []rune(s)
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
