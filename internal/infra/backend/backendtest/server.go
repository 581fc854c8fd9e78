// Package backendtest поддельный бэкенд склада для тестов поверх httptest.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

type Record = map[string]any

type Server struct {
	*httptest.Server

	mu           sync.Mutex
	products     []Record
	suppliers    []Record
	warehouses   []Record
	skills       []Record
	transactions []Record
	finished     []Record
	posts        map[string][]Record
	gets         map[string]int

	// DefaultRate ставка за час для навыка, если не задана в Rates.
	DefaultRate float64
	Rates       map[string]float64
	FailLabor   bool
	FailAll     bool
	laborCalls  int
}

func New(t testing.TB) *Server {
	s := &Server{DefaultRate: 20, Rates: map[string]float64{}, posts: map[string][]Record{}, gets: map[string]int{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", s.list(&s.products))
	mux.HandleFunc("POST /products", s.createProduct)
	mux.HandleFunc("POST /products/{id}/increment-email-count", s.emailCount(1))
	mux.HandleFunc("POST /products/{id}/reset-email-count", s.emailCount(0))
	mux.HandleFunc("GET /suppliers", s.list(&s.suppliers))
	mux.HandleFunc("GET /warehouses", s.list(&s.warehouses))
	mux.HandleFunc("GET /skills", s.list(&s.skills))
	mux.HandleFunc("POST /skills", s.createSkill)
	mux.HandleFunc("GET /transactions", s.list(&s.transactions))
	mux.HandleFunc("POST /transactions", s.createTransaction)
	mux.HandleFunc("POST /calculate-labor-cost", s.laborCost)
	mux.HandleFunc("GET /finished_products", s.list(&s.finished))
	mux.HandleFunc("POST /finished_products", s.createFinished)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		fail := s.FailAll
		s.mu.Unlock()
		if fail {
			writeJSON(w, http.StatusInternalServerError, Record{"error": "backend down"})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) AddProduct(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, r)
}

func (s *Server) AddSupplier(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers = append(s.suppliers, r)
}

func (s *Server) AddWarehouse(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses = append(s.warehouses, r)
}

func (s *Server) AddSkill(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills = append(s.skills, r)
}

func (s *Server) AddTransaction(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, r)
}

func (s *Server) AddFinished(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, r)
}

func (s *Server) SetFailAll(v bool) {
	s.mu.Lock()
	s.FailAll = v
	s.mu.Unlock()
}

// Posts тела POST-запросов на path в порядке поступления.
func (s *Server) Posts(path string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.posts[path]...)
}

// Gets сколько раз читали path.
func (s *Server) Gets(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[path]
}

func (s *Server) LaborCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.laborCalls
}

// Product текущая запись материала по id.
func (s *Server) Product(id int64) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if toInt(p["id"]) == id {
			return p
		}
	}
	return nil
}

func (s *Server) list(src *[]Record) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.gets[r.URL.Path]++
		writeJSON(w, http.StatusOK, append([]Record{}, *src...))
	}
}

func (s *Server) record(r *http.Request) Record {
	var body Record
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body == nil {
		body = Record{}
	}
	s.posts[r.URL.Path] = append(s.posts[r.URL.Path], body)
	return body
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body := s.record(r)
	body["id"] = float64(len(s.products) + 1)
	body["email_sent_count"] = float64(0)
	s.products = append(s.products, body)
	writeJSON(w, http.StatusOK, Record{"success": true})
}

func (s *Server) emailCount(delta int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.record(r)
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		for _, p := range s.products {
			if toInt(p["id"]) != id {
				continue
			}
			if delta == 0 {
				p["email_sent_count"] = float64(0)
			} else {
				p["email_sent_count"] = float64(toInt(p["email_sent_count"]) + int64(delta))
			}
			writeJSON(w, http.StatusOK, Record{"success": true, "email_sent_count": p["email_sent_count"]})
			return
		}
		writeJSON(w, http.StatusNotFound, Record{"error": "Product not found"})
	}
}

func (s *Server) createSkill(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body := s.record(r)
	rec := Record{"id": float64(len(s.skills) + 1), "name": body["name"]}
	s.skills = append(s.skills, rec)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body := s.record(r)
	body["id"] = float64(len(s.transactions) + 1)
	s.transactions = append(s.transactions, body)

	id := toInt(body["product_id"])
	qty := toFloat(body["quantity"])
	for _, p := range s.products {
		if toInt(p["id"]) == id {
			cur := toFloat(p["quantity"])
			p["quantity"] = cur + qty
		}
	}
	writeJSON(w, http.StatusOK, Record{"success": true})
}

func (s *Server) laborCost(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.laborCalls++
	body := s.record(r)
	if s.FailLabor {
		writeJSON(w, http.StatusInternalServerError, Record{"error": "labor engine down"})
		return
	}
	hours := toFloat(body["estimated_hours"])
	skills, _ := body["skills"].([]any)

	total := 0.0
	breakdown := make([]Record, 0, len(skills))
	for _, sk := range skills {
		name, _ := sk.(string)
		rate, ok := s.Rates[name]
		entry := Record{"skill": name, "employees_count": 1}
		if !ok {
			rate = s.DefaultRate
			entry["employees_count"] = 0
			entry["note"] = "No employees with this skill, using default rate"
		}
		entry["avg_hourly_rate"] = rate
		entry["skill_cost"] = rate * hours
		total += rate * hours
		breakdown = append(breakdown, entry)
	}
	writeJSON(w, http.StatusOK, Record{"labor_cost": total, "skill_breakdown": breakdown, "estimated_hours": hours})
}

func (s *Server) createFinished(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body := s.record(r)
	id := float64(len(s.finished) + 1)
	body["id"] = id
	s.finished = append(s.finished, body)
	writeJSON(w, http.StatusOK, Record{"id": id, "model_name": body["model_name"]})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
