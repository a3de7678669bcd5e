package dump

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/pbkdf2"

	apperrors "mysql-dump/internal/errors"
)

// Encrypted file layout: an 8-byte magic, a random 32-byte salt, then a
// sequence of chunks. Each chunk is a 4-byte big-endian frame length
// followed by nonce||ciphertext from AES-256-GCM. Chunking keeps memory
// bounded regardless of table size and lets decryption detect truncation.
const (
	encryptionMagic     = "MDENC001"
	encryptionSaltSize  = 32
	encryptionChunkSize = 64 * 1024
	encryptionKeySize   = 32
	keyIterations       = 100000
)

// Encryptor wraps output streams with AES-256-GCM encryption. The key is
// derived from the configured password with PBKDF2, using a fresh salt
// per file.
type Encryptor struct {
	password string
}

// NewEncryptor creates an encryptor for the given password.
func NewEncryptor(password string) *Encryptor {
	return &Encryptor{password: password}
}

// Extension returns the filename extension appended to encrypted files.
func (e *Encryptor) Extension() string {
	return ".enc"
}

// NewWriter writes the file header to w and returns a writer that
// encrypts everything written to it. Close flushes the final chunk but
// leaves w open.
func (e *Encryptor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	salt := make([]byte, encryptionSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, apperrors.NewStorageError("failed to generate encryption salt", err)
	}

	gcm, err := e.aead(salt)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write([]byte(encryptionMagic)); err != nil {
		return nil, apperrors.NewStorageError("failed to write encryption header", err)
	}
	if _, err := w.Write(salt); err != nil {
		return nil, apperrors.NewStorageError("failed to write encryption salt", err)
	}

	return &encryptWriter{
		w:   w,
		gcm: gcm,
		buf: make([]byte, 0, encryptionChunkSize),
	}, nil
}

// NewReader validates the file header of r and returns a reader that
// decrypts the chunk stream.
func (e *Encryptor) NewReader(r io.Reader) (io.ReadCloser, error) {
	magic := make([]byte, len(encryptionMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, apperrors.NewStorageError("failed to read encryption header", err)
	}
	if !bytes.Equal(magic, []byte(encryptionMagic)) {
		return nil, apperrors.NewStorageError("file is not an encrypted dump", nil)
	}

	salt := make([]byte, encryptionSaltSize)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, apperrors.NewStorageError("failed to read encryption salt", err)
	}

	gcm, err := e.aead(salt)
	if err != nil {
		return nil, err
	}

	return &decryptReader{r: r, gcm: gcm}, nil
}

// aead derives the AES-256 key for salt and builds the GCM cipher.
func (e *Encryptor) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(e.password), salt, keyIterations, encryptionKeySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create GCM cipher", err)
	}
	return gcm, nil
}

// encryptWriter buffers plaintext and seals one chunk per chunk size.
type encryptWriter struct {
	w   io.Writer
	gcm cipher.AEAD
	buf []byte
}

func (ew *encryptWriter) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		space := encryptionChunkSize - len(ew.buf)
		if space == 0 {
			if err := ew.flushChunk(); err != nil {
				return total - len(p), err
			}
			space = encryptionChunkSize
		}
		if space > len(p) {
			space = len(p)
		}
		ew.buf = append(ew.buf, p[:space]...)
		p = p[space:]
	}
	return total, nil
}

// Close seals and writes any buffered plaintext.
func (ew *encryptWriter) Close() error {
	return ew.flushChunk()
}

func (ew *encryptWriter) flushChunk() error {
	if len(ew.buf) == 0 {
		return nil
	}

	nonce := make([]byte, ew.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return apperrors.NewStorageError("failed to generate nonce", err)
	}
	sealed := ew.gcm.Seal(nonce, nonce, ew.buf, nil)

	var frameLen [4]byte
	binary.BigEndian.PutUint32(frameLen[:], uint32(len(sealed)))
	if _, err := ew.w.Write(frameLen[:]); err != nil {
		return apperrors.NewStorageError("failed to write encrypted chunk", err)
	}
	if _, err := ew.w.Write(sealed); err != nil {
		return apperrors.NewStorageError("failed to write encrypted chunk", err)
	}

	ew.buf = ew.buf[:0]
	return nil
}

// decryptReader opens one sealed chunk at a time and serves plaintext
// from it.
type decryptReader struct {
	r     io.Reader
	gcm   cipher.AEAD
	plain []byte
	err   error
}

func (dr *decryptReader) Read(p []byte) (int, error) {
	for len(dr.plain) == 0 {
		if dr.err != nil {
			return 0, dr.err
		}
		dr.err = dr.readChunk()
	}

	n := copy(p, dr.plain)
	dr.plain = dr.plain[n:]
	return n, nil
}

func (dr *decryptReader) Close() error {
	return nil
}

func (dr *decryptReader) readChunk() error {
	var frameLen [4]byte
	if _, err := io.ReadFull(dr.r, frameLen[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return apperrors.NewStorageError("truncated encrypted stream", err)
	}

	size := int(binary.BigEndian.Uint32(frameLen[:]))
	maxFrame := encryptionChunkSize + dr.gcm.NonceSize() + dr.gcm.Overhead()
	if size < dr.gcm.NonceSize()+dr.gcm.Overhead() || size > maxFrame {
		return apperrors.NewStorageError("invalid encrypted chunk length", nil)
	}

	sealed := make([]byte, size)
	if _, err := io.ReadFull(dr.r, sealed); err != nil {
		return apperrors.NewStorageError("truncated encrypted chunk", err)
	}

	nonce, ciphertext := sealed[:dr.gcm.NonceSize()], sealed[dr.gcm.NonceSize():]
	plain, err := dr.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return apperrors.NewStorageError("failed to decrypt chunk", err)
	}

	dr.plain = plain
	return nil
}
