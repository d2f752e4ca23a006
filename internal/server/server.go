package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/proofhtf/proofhtf-api/internal/chainenv"
	"github.com/proofhtf/proofhtf-api/internal/handlers"
)

// Handler definitions
var (
	sessionHandler *handlers.SessionHandler
	courseHandler  *handlers.CourseHandler
	examHandler    *handlers.ExamHandler
	userHandler    *handlers.UserHandler
	tipHandler     *handlers.TipHandler
)

// InitializeHandlers wires the handlers against the chain environment.
func InitializeHandlers(env *chainenv.Environment) {
	commonServices := handlers.NewCommonServices(env)

	sessionHandler = handlers.NewSessionHandler(commonServices)
	courseHandler = handlers.NewCourseHandler(commonServices)
	examHandler = handlers.NewExamHandler(commonServices)
	userHandler = handlers.NewUserHandler(commonServices)
	tipHandler = handlers.NewTipHandler(commonServices)
}

// InitializeRoutes registers middleware and the API surface.
func InitializeRoutes(router *gin.Engine) {
	router.Use(configureCORS())

	router.GET("/health", handlers.Health)

	api := router.Group("/api")
	{
		// Session lifecycle
		api.POST("/session", sessionHandler.CreateSession)
		api.GET("/session", sessionHandler.GetSession)
		api.DELETE("/session", sessionHandler.DeleteSession)

		// Users and smart accounts
		api.POST("/users/register", userHandler.RegisterUser)
		api.GET("/users/:address", userHandler.GetUser)
		api.GET("/users/:address/smart-account", userHandler.GetSmartAccount)

		// Courses
		api.GET("/courses", courseHandler.ListCourses)
		api.POST("/courses", courseHandler.CreateCourse)
		api.GET("/courses/:course_id", courseHandler.GetCourse)
		api.POST("/courses/:course_id/enroll", courseHandler.Enroll)
		api.GET("/tutors/:address/courses", courseHandler.ListTutorCourses)
		api.GET("/students/:address/courses", courseHandler.ListEnrolledCourses)

		// Exams
		api.POST("/exams", examHandler.CreateExam)
		api.GET("/exams/:exam_id", examHandler.GetExam)
		api.GET("/exams/:exam_id/questions", examHandler.GetExamQuestions)
		api.GET("/exams/:exam_id/results", examHandler.GetExamResults)
		api.GET("/exams/:exam_id/revision", examHandler.GetExamRevision)
		api.POST("/exams/:exam_id/take", examHandler.TakeExam)

		// Tips (session path)
		api.POST("/tips", tipHandler.SendTip)
	}
}

func configureCORS() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		origins := strings.Split(originsEnv, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		corsConfig.AllowOrigins = origins
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}

	return cors.New(corsConfig)
}
