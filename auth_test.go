package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestUser(t *testing.T) {
	Convey("Methods work as expected", t, func() {
		user := new(User)
		Convey("Setting and verify password works correctly with hashes", func() {
			user.SetPassword([]byte("hello123"))
			So(user.Password, ShouldStartWith, "$")

			So(user.VerifyPassword([]byte("hello123")), ShouldBeNil)
			So(user.VerifyPassword([]byte("hello12")), ShouldNotBeNil)
		})

		Convey("Invalid hash returns the correct error code", func() {
			user.Password = "I DON'T WORK"
			So(user.VerifyPassword([]byte("hello123")).Error(), ShouldContainSubstring, "hashedSecret too short")
		})
	})
}

func TestJWTGeneration(t *testing.T) {
	Convey("test basic claim creation", t, func() {
		ts, err := newJWT("hello test")
		So(ts, ShouldNotBeEmpty)
		So(err, ShouldBeNil)
	})

	Convey("a fresh token passes the validation middleware", t, func() {
		ts, err := newJWT("middleware test")
		So(err, ShouldBeNil)

		passed := false
		handler := ValidateJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
		}))

		req := httptest.NewRequest("GET", "/api/state", nil)
		req.Header.Set("Authorization", "Bearer "+ts)
		handler.ServeHTTP(httptest.NewRecorder(), req)
		So(passed, ShouldBeTrue)
	})

	Convey("garbage tokens are rejected", t, func() {
		handler := ValidateJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("middleware let a bad token through")
		}))

		req := httptest.NewRequest("GET", "/api/state", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		So(rr.Code, ShouldEqual, http.StatusUnauthorized)
	})

	Convey("a missing token is rejected", t, func() {
		handler := ValidateJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("middleware let a missing token through")
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/state", nil))
		So(rr.Code, ShouldEqual, http.StatusUnauthorized)
	})
}

func TestLogin(t *testing.T) {
	// setup the fake db
	db, err := openDb(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		panic(err)
	}
	ENV.DB = db
	defer db.Close()

	user := &User{
		Email: "login@test.case",
	}
	user.SetPassword([]byte("testing123"))
	ENV.DB.Save(user)

	post := func(lp *LoginPayload) *httptest.ResponseRecorder {
		body, _ := json.Marshal(lp)
		req := httptest.NewRequest("POST", "/api/login", bytes.NewBuffer(body))
		req.Header.Add("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		http.HandlerFunc(Login).ServeHTTP(rr, req)
		return rr
	}

	Convey("Valid request works as expected", t, func() {
		rr := post(&LoginPayload{
			Email:    "login@test.case",
			Password: "testing123",
		})

		So(rr.Code, ShouldEqual, http.StatusOK)
		So(rr.Body.String(), ShouldContainSubstring, `"token":`)
	})

	Convey("Invalid credentials return error", t, func() {
		Convey("Incorrect username provides 404", func() {
			rr := post(&LoginPayload{
				Email:    "login-no@test.case",
				Password: "testing123",
			})
			So(rr.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Incorrect password provides 403", func() {
			rr := post(&LoginPayload{
				Email:    "login@test.case",
				Password: "testing12",
			})
			So(rr.Code, ShouldEqual, http.StatusForbidden)
		})
	})
}
