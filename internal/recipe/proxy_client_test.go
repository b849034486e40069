package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/samkitchen/internal/model"
)

func TestProxyClient_Generate_Success(t *testing.T) {
	var got model.FilterInput
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != GeneratePath {
			t.Errorf("path = %s, want %s", r.URL.Path, GeneratePath)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(validRecipeJSON))
	}))
	defer server.Close()

	c := NewProxyClient(server.Client(), server.URL+"/", discardLogger())

	in := chickenAndRice()
	in.DietaryOptions = []string{"نباتي"}
	r, err := c.Generate(context.Background(), in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if got.Ingredients != "chicken, rice" {
		t.Errorf("sent ingredients = %q, want %q", got.Ingredients, "chicken, rice")
	}
	if got.Cuisine != model.AnyType || got.MealType != model.AnyType {
		t.Errorf("sent cuisine/mealType = %q/%q, want sentinel", got.Cuisine, got.MealType)
	}
	if len(got.DietaryOptions) != 1 || got.DietaryOptions[0] != "نباتي" {
		t.Errorf("sent dietaryOptions = %v", got.DietaryOptions)
	}
	if r.RecipeName != "كبسة دجاج" {
		t.Errorf("RecipeName = %q, want %q", r.RecipeName, "كبسة دجاج")
	}
}

func TestProxyClient_Generate_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ProxyErrorBody{Error: model.GenerationFailedMessage, Details: MissingKeyCause})
	}))
	defer server.Close()

	c := NewProxyClient(server.Client(), server.URL, discardLogger())

	_, err := c.Generate(context.Background(), chickenAndRice())
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %v, want *GenerationError", err)
	}
	if genErr.Kind != KindStatus {
		t.Errorf("Kind = %q, want %q", genErr.Kind, KindStatus)
	}
	if !strings.Contains(genErr.Cause, "500") || !strings.Contains(genErr.Cause, MissingKeyCause) {
		t.Errorf("Cause = %q, want status and details", genErr.Cause)
	}
}

func TestProxyClient_Generate_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewProxyClient(nil, url, discardLogger())

	_, err := c.Generate(context.Background(), chickenAndRice())
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %v, want *GenerationError", err)
	}
	if genErr.Kind != KindTransport {
		t.Errorf("Kind = %q, want %q", genErr.Kind, KindTransport)
	}
}

func TestProxyClient_Generate_InvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"recipeName":"only"}`))
	}))
	defer server.Close()

	c := NewProxyClient(server.Client(), server.URL, discardLogger())

	_, err := c.Generate(context.Background(), chickenAndRice())
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Kind != KindDecode {
		t.Errorf("error = %v, want decode GenerationError", err)
	}
}
